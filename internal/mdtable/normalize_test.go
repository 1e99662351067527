package mdtable

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"mdtablefix/internal/trace"
)

const sampleDoc = "# Title\n" +
	"\n" +
	"|Name|Value|\n" +
	"|:---|--:|\n" +
	"|a| |\n" +
	"\n" +
	"```\n" +
	"|a|b|\n" +
	"```\n" +
	"- | not a table |\n" +
	"|x|y|"

const sampleWant = "# Title\n" +
	"\n" +
	"| Name | Value |\n" +
	"| :--- | ---: |\n" +
	"| a | |\n" +
	"\n" +
	"```\n" +
	"|a|b|\n" +
	"```\n" +
	"- | not a table |\n" +
	"| x | y |"

func TestNormalizeDocument(t *testing.T) {
	res := Normalize(context.Background(), []byte(sampleDoc))
	if !res.Changed {
		t.Fatalf("expected document to change")
	}
	if got := string(res.Output); got != sampleWant {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, sampleWant)
	}
	if res.Rows != 4 {
		t.Fatalf("Rows = %d, want 4", res.Rows)
	}
	if res.Skipped != 0 {
		t.Fatalf("Skipped = %d, want 0", res.Skipped)
	}

	wantLines := []uint32{3, 4, 5, 11}
	if len(res.Changes) != len(wantLines) {
		t.Fatalf("got %d changes, want %d", len(res.Changes), len(wantLines))
	}
	for i, ch := range res.Changes {
		if ch.Line != wantLines[i] {
			t.Fatalf("change %d: line %d, want %d", i, ch.Line, wantLines[i])
		}
		if strings.HasSuffix(ch.Before, "\n") || strings.HasSuffix(ch.After, "\n") {
			t.Fatalf("change %d keeps a terminator: %+v", i, ch)
		}
	}
	if res.Changes[1].After != "| :--- | ---: |" {
		t.Fatalf("separator change = %q", res.Changes[1].After)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		sampleDoc,
		"|a|b|\r\n|-|-|\r\n",
		"||||\n| | |\n",
		"```\n|a|\n",
	}
	for _, in := range inputs {
		once := Normalize(context.Background(), []byte(in))
		twice := Normalize(context.Background(), once.Output)
		if twice.Changed {
			t.Fatalf("second pass changed %q: %q -> %q", in, once.Output, twice.Output)
		}
		if !bytes.Equal(once.Output, twice.Output) {
			t.Fatalf("outputs differ for %q", in)
		}
	}
}

func TestNormalizeFenceOpacity(t *testing.T) {
	in := "```\n|a|b|\n|---|---|\n   | c |d|\n```\n"
	res := Normalize(context.Background(), []byte(in))
	if res.Changed {
		t.Fatalf("fenced content must not change, got %q", res.Output)
	}
	if res.Rows != 0 {
		t.Fatalf("Rows = %d, want 0", res.Rows)
	}
}

func TestNormalizeUnterminatedFence(t *testing.T) {
	in := "|a|\n```\n|b|\n|c|\n"
	want := "| a |\n```\n|b|\n|c|\n"
	res := Normalize(context.Background(), []byte(in))
	if got := string(res.Output); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestNormalizeUnchangedReturnsInput(t *testing.T) {
	in := []byte("text\n| a | b |\n| --- | --- |\n")
	res := Normalize(context.Background(), in)
	if res.Changed {
		t.Fatalf("canonical input reported as changed: %+v", res.Changes)
	}
	if &res.Output[0] != &in[0] {
		t.Fatalf("expected unchanged output to alias input")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	res := Normalize(context.Background(), nil)
	if res.Changed || len(res.Output) != 0 {
		t.Fatalf("unexpected result for empty input: %+v", res)
	}
}

func TestNormalizeKeepsRowOnRewriteFailure(t *testing.T) {
	orig := rewrite
	defer func() { rewrite = orig }()
	rewrite = func(line string) string {
		if strings.Contains(line, "boom") {
			panic("boom")
		}
		return RewriteRow(line)
	}

	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelDebug, trace.FormatText)
	ctx := trace.WithTracer(context.Background(), tr)

	in := "|boom|x|\n|a|b|\n"
	res := Normalize(ctx, []byte(in))
	if got, want := string(res.Output), "|boom|x|\n| a | b |\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	if res.Skipped != 1 {
		t.Fatalf("Skipped = %d, want 1", res.Skipped)
	}
	if !strings.Contains(buf.String(), "row:skipped") {
		t.Fatalf("expected skipped row to be traced, got %q", buf.String())
	}
}
