package document

import (
	"regexp"
	"strings"
)

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockSubheading
	BlockBullet
	BlockBreak
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockSubheading:
		return "subheading"
	case BlockBullet:
		return "bullet"
	case BlockBreak:
		return "break"
	default:
		return "paragraph"
	}
}

type Block struct {
	Kind BlockKind
	Text string
}

var reNumberedHeading = regexp.MustCompile(`^\d+\.\s*\*\*(.*)\*\*`)

// ParseActa classifies each line of the acta body.
//
//	"2. **Acuerdos**"  heading
//	"**Participantes**" subheading
//	"- item"           bullet
//	""                 break
func ParseActa(body string) []Block {
	lines := strings.Split(body, "\n")
	blocks := make([]Block, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			blocks = append(blocks, Block{Kind: BlockBreak})
		case reNumberedHeading.MatchString(line):
			text := reNumberedHeading.ReplaceAllString(line, "$1")
			blocks = append(blocks, Block{Kind: BlockHeading, Text: strings.TrimSpace(text)})
		case len(line) > 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**"):
			blocks = append(blocks, Block{Kind: BlockSubheading, Text: strings.TrimSpace(line[2 : len(line)-2])})
		case strings.HasPrefix(line, "- "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: line[2:]})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: line})
		}
	}

	return blocks
}
