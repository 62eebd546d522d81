package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractTextErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		if _, err := ExtractText("/nonexistent/file.pdf"); err == nil {
			t.Fatal("Expected error for missing file")
		}
	})

	t.Run("NotAPDF", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fake.pdf")
		if err := os.WriteFile(path, []byte("this is plain text"), 0o644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}

		if _, err := ExtractText(path); err == nil {
			t.Fatal("Expected error for a non-PDF file")
		}
	})
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"CollapsesSpaces",
			"Loan   Amount:    $400,000.00",
			"Loan Amount: $400,000.00",
		},
		{
			"CollapsesBlankLines",
			"Line one\n\n\n\nLine two",
			"Line one\n\nLine two",
		},
		{
			"TrimsEdges",
			"\n\n  Interest Rate: 5.0 %  \n\n",
			"Interest Rate: 5.0 %",
		},
		{
			"PreservesLineStructure",
			"Seller: KB Homes\nLender: KB Home Loans",
			"Seller: KB Homes\nLender: KB Home Loans",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanText(tt.in); got != tt.want {
				t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
