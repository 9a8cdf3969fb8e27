package cli

import (
	"strings"
	"testing"

	"github.com/wallshift/wallshift/internal/cluster"
	"github.com/wallshift/wallshift/internal/pixels"
)

func testResult() cluster.Result {
	return cluster.Result{
		{Color: pixels.Pixel{R: 16, G: 32, B: 48}, Count: 9},
		{Color: pixels.Pixel{R: 200, G: 100, B: 50}, Count: 4},
	}
}

func TestFormatResultHex(t *testing.T) {
	out, err := formatResult(testResult(), "hex", false)
	if err != nil {
		t.Fatalf("formatResult() unexpected error: %v", err)
	}
	want := "#102030\n#c86432\n"
	if out != want {
		t.Errorf("formatResult(hex) = %q, want %q", out, want)
	}
}

func TestFormatResultRGB(t *testing.T) {
	out, err := formatResult(testResult(), "rgb", false)
	if err != nil {
		t.Fatalf("formatResult() unexpected error: %v", err)
	}
	if !strings.Contains(out, "rgb(16, 32, 48)") || !strings.Contains(out, "9 pixels") {
		t.Errorf("formatResult(rgb) missing colour or count: %q", out)
	}
}

func TestFormatResultJSON(t *testing.T) {
	out, err := formatResult(testResult(), "json", false)
	if err != nil {
		t.Fatalf("formatResult() unexpected error: %v", err)
	}
	if !strings.Contains(out, `"#102030"`) || !strings.Contains(out, `"count": 2`) {
		t.Errorf("formatResult(json) = %q", out)
	}
}

func TestFormatResultUnsupported(t *testing.T) {
	if _, err := formatResult(testResult(), "yaml", false); err == nil {
		t.Fatal("formatResult() accepted unsupported format")
	}
}
