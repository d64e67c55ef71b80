package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		c, err := New(1000, 200)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Size() != 1000 || c.Overlap() != 200 {
			t.Errorf("unexpected parameters: size=%d overlap=%d", c.Size(), c.Overlap())
		}
	})

	t.Run("zero overlap allowed", func(t *testing.T) {
		if _, err := New(100, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid parameters", func(t *testing.T) {
		cases := []struct {
			name          string
			size, overlap int
		}{
			{"zero size", 0, 0},
			{"negative size", -1, 0},
			{"negative overlap", 100, -1},
			{"overlap equals size", 100, 100},
			{"overlap exceeds size", 100, 150},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := New(tc.size, tc.overlap); !errors.Is(err, domain.ErrConfig) {
					t.Errorf("expected ErrConfig, got %v", err)
				}
			})
		}
	})
}

func TestChunks_EmptyAndWhitespace(t *testing.T) {
	c, _ := New(100, 20)
	for _, text := range []string{"", "   ", "\n\t \n"} {
		if got := c.Split(text); len(got) != 0 {
			t.Errorf("Split(%q): expected no passages, got %d", text, len(got))
		}
	}
}

func TestChunks_SingleShortPassage(t *testing.T) {
	c, _ := New(100, 20)
	passages := c.Split("hello world")
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	p := passages[0]
	if p.Text != "hello world" || p.Start != 0 || p.End != 11 {
		t.Errorf("unexpected passage: %+v", p)
	}
}

func TestChunks_AdvanceRule(t *testing.T) {
	// 2500 characters, size 1000, overlap 200: windows start at
	// 0, 800, 1600, 2400.
	text := strings.Repeat("a", 2500)
	c, _ := New(1000, 200)

	passages := c.Split(text)
	if len(passages) != 4 {
		t.Fatalf("expected 4 passages, got %d", len(passages))
	}

	want := []struct{ start, end int }{
		{0, 1000},
		{800, 1800},
		{1600, 2500},
		{2400, 2500},
	}
	for i, w := range want {
		if passages[i].Start != w.start || passages[i].End != w.end {
			t.Errorf("passage %d: expected [%d,%d), got [%d,%d)",
				i, w.start, w.end, passages[i].Start, passages[i].End)
		}
	}
}

func TestChunks_OverlapContent(t *testing.T) {
	text := "abcdefghij" // 10 chars
	c, _ := New(4, 2)

	passages := c.Split(text)
	for i := 1; i < len(passages); i++ {
		prev, cur := passages[i-1], passages[i]
		if cur.Start >= prev.End {
			continue // trailing short window past the previous end
		}
		shared := prev.End - cur.Start
		if shared != 2 {
			t.Errorf("passages %d/%d share %d chars, expected 2", i-1, i, shared)
		}
		if prev.Text[len(prev.Text)-shared:] != cur.Text[:shared] {
			t.Errorf("overlap text mismatch between passages %d and %d", i-1, i)
		}
	}
}

func TestChunks_ReconstructsInput(t *testing.T) {
	texts := []string{
		strings.Repeat("x", 1),
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60),
		"héllo wörld ünicode " + strings.Repeat("é", 500),
	}
	configs := []struct{ size, overlap int }{
		{1000, 200}, {100, 0}, {7, 3}, {50, 49},
	}

	for _, text := range texts {
		runes := []rune(text)
		for _, cfg := range configs {
			c, err := New(cfg.size, cfg.overlap)
			if err != nil {
				t.Fatalf("New(%d, %d): %v", cfg.size, cfg.overlap, err)
			}

			covered := 0 // highest offset covered so far
			for p := range c.Chunks(text) {
				if p.Text == "" {
					t.Fatal("empty passage produced")
				}
				if string(runes[p.Start:p.End]) != p.Text {
					t.Fatalf("offsets [%d,%d) do not match passage text", p.Start, p.End)
				}
				if p.Start > covered {
					t.Fatalf("gap in coverage: covered to %d, next starts at %d", covered, p.Start)
				}
				if p.End > covered {
					covered = p.End
				}
			}
			if covered != len(runes) {
				t.Errorf("size=%d overlap=%d: covered %d of %d runes", cfg.size, cfg.overlap, covered, len(runes))
			}
		}
	}
}

func TestChunks_Restartable(t *testing.T) {
	c, _ := New(10, 2)
	seq := c.Chunks(strings.Repeat("z", 35))

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first == 0 || first != second {
		t.Errorf("sequence not restartable: first=%d second=%d", first, second)
	}
}

func TestChunks_EarlyStop(t *testing.T) {
	c, _ := New(10, 0)
	count := 0
	for range c.Chunks(strings.Repeat("y", 100)) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("expected early stop after 3 passages, got %d", count)
	}
}
