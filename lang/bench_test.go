package lang

import (
	"context"
	"io"
	"testing"
)

var benchData = map[string]any{
	"user":  map[string]any{"name": "Ann", "role": "admin"},
	"items": []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	"price": 1234.5,
}

var benchTemplates = []struct {
	name string
	src  string
}{
	{
		name: "text",
		src:  "Hello, world!",
	},
	{
		name: "interpolation",
		src:  `Hello, ${user.name?upper_case}!`,
	},
	{
		name: "list",
		src:  `<#list items as i>${i * 2}<#sep>, </#list>`,
	},
	{
		name: "macro",
		src:  `<#macro row x><td>${x}</td></#macro><#list items as i><@row x=i/></#list>`,
	},
	{
		name: "format",
		src:  `${price} ${price?c} ${price?string("0.00")}`,
	},
}

// BenchmarkParse benchmarks parsing templates.
func BenchmarkParse(b *testing.B) {
	for _, tt := range benchTemplates {
		b.Run(tt.name, func(b *testing.B) {
			b.ReportAllocs()

			for b.Loop() {
				if _, err := Parse(tt.name, tt.src); err != nil {
					b.Fatalf("parse error: %v", err)
				}
			}
		})
	}
}

// BenchmarkRender benchmarks rendering parsed templates.
func BenchmarkRender(b *testing.B) {
	for _, tt := range benchTemplates {
		b.Run(tt.name, func(b *testing.B) {
			tmpl, err := Parse(tt.name, tt.src)
			if err != nil {
				b.Fatalf("parse error: %v", err)
			}

			b.ReportAllocs()

			for b.Loop() {
				if err := tmpl.Render(context.Background(), io.Discard, benchData); err != nil {
					b.Fatalf("render error: %v", err)
				}
			}
		})
	}
}

// BenchmarkCacheParse benchmarks repeated parses through the cache.
func BenchmarkCacheParse(b *testing.B) {
	c := NewCache()
	src := benchTemplates[len(benchTemplates)-1].src

	b.ReportAllocs()

	for b.Loop() {
		if _, err := c.Parse(context.Background(), "cached", src); err != nil {
			b.Fatalf("parse error: %v", err)
		}
	}
}

// BenchmarkEvalExpression benchmarks stand-alone expression evaluation.
func BenchmarkEvalExpression(b *testing.B) {
	x, err := ParseExpression(`user.name?upper_case + " has " + items?size + " items"`)
	if err != nil {
		b.Fatalf("parse error: %v", err)
	}

	b.ReportAllocs()

	for b.Loop() {
		if _, err := x.Eval(context.Background(), benchData); err != nil {
			b.Fatalf("eval error: %v", err)
		}
	}
}
