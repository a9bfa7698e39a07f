package topics

// Topic names an analytics event as prefix_name.
type Topic struct {
	prefix string
	name   string
}

func New(prefix, name string) Topic {
	return Topic{
		prefix: prefix,
		name:   name,
	}
}

func (t Topic) Name() string {
	if t.prefix == "" {
		return t.name
	}
	return t.prefix + "_" + t.name
}

func (t Topic) String() string {
	return t.Name()
}

var (
	ActaGenerated = New("acta", "generated")
	ActaFailed    = New("acta", "failed")
)
