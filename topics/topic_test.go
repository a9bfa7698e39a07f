package topics

import "testing"

func TestTopicName(t *testing.T) {
	tests := []struct {
		topic Topic
		want  string
	}{
		{New("acta", "generated"), "acta_generated"},
		{New("", "ping"), "ping"},
		{ActaFailed, "acta_failed"},
	}

	for _, tt := range tests {
		if got := tt.topic.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}
