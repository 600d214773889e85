package nfc

import (
	"context"
	"strings"
	"testing"
)

func TestRunEmitsNormalizedTags(t *testing.T) {
	input := strings.Join([]string{
		"04a1b2c3",
		"",
		"not-hex!!",
		"  04FFEE1122AABB  ",
		"ABC", // odd length
	}, "\n")

	src := NewSource(strings.NewReader(input))
	tags := make(chan string, 10)

	if err := src.Run(context.Background(), tags); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(tags)

	var got []string
	for tag := range tags {
		got = append(got, tag)
	}

	want := []string{"04A1B2C3", "04FFEE1122AABB"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := NewSource(strings.NewReader("04A1B2C3\n04FFEE11\n"))
	tags := make(chan string) // unbuffered, nobody reading

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := src.Run(ctx, tags); err == nil {
		t.Fatal("expected context error")
	}
}
