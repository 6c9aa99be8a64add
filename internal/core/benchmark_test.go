package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/JonMunkholm/efile/internal/efile"
)

// ============================================================================
// Parse Benchmarks
// ============================================================================

// benchDocument builds a document with sections of rows x cols numeric cells.
func benchDocument(sections, rows, cols int) []byte {
	var b strings.Builder
	for s := 0; s < sections; s++ {
		fmt.Fprintf(&b, "<section%d>\n@", s)
		for c := 0; c < cols; c++ {
			fmt.Fprintf(&b, " c%d", c)
		}
		b.WriteString("\n")
		for r := 0; r < rows; r++ {
			b.WriteString("#")
			for c := 0; c < cols; c++ {
				fmt.Fprintf(&b, " %d.%d", r, c)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "</section%d>\n", s)
	}
	return []byte(b.String())
}

// BenchmarkService_Parse measures a full parse including caching.
func BenchmarkService_Parse(b *testing.B) {
	data := benchDocument(10, 1000, 8)
	svc := NewService(efile.DefaultFormatSpec(), nil, Options{MaxCached: 1})
	ctx := context.Background()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Parse(ctx, "bench.Qs", bytes.NewReader(data), int64(len(data))); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExport benchmarks each export format on the same document.
func BenchmarkExport(b *testing.B) {
	data := benchDocument(1, 5000, 8)
	result, err := efile.NewParser(efile.DefaultFormatSpec()).ParseBytes("bench.Qs", data)
	if err != nil {
		b.Fatal(err)
	}
	doc := &Document{FileName: "bench.Qs", Result: result}

	for _, format := range Formats {
		b.Run(string(format), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if err := Export(io.Discard, doc, "section0", format, efile.DefaultFormatSpec()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
