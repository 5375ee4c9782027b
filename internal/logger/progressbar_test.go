package logger

import "testing"

func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		width   int
		advance int
		want    string
	}{
		{name: "empty", total: 4, width: 4, advance: 0, want: "[    ] 0/4 (0%)"},
		{name: "half", total: 4, width: 4, advance: 2, want: "[==  ] 2/4 (50%)"},
		{name: "complete", total: 4, width: 4, advance: 4, want: "[====] 4/4 (100%)"},
		{name: "overrun clamps", total: 2, width: 4, advance: 3, want: "[====] 3/2 (100%)"},
		{name: "zero total", total: 0, width: 4, advance: 0, want: "[    ] 0/0 (0%)"},
		{name: "default width", total: 10, width: 0, advance: 3, want: "[===       ] 3/10 (30%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			for i := 0; i < tt.advance; i++ {
				pb.Increment()
			}
			if got := pb.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
			if pb.Current() != tt.advance {
				t.Errorf("Current() = %d, want %d", pb.Current(), tt.advance)
			}
		})
	}
}

func TestProgressBarPercentage(t *testing.T) {
	pb := NewProgressBar(3, 10, false)
	pb.Increment()
	if got := pb.Percentage(); got != 33 {
		t.Errorf("Percentage() = %d, want 33", got)
	}
}
