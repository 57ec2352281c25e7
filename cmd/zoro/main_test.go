package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestRunCommands(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		src      string
		args     []string
		code     int
		stdout   string
		stderrOK string
	}{
		{"run zoro", "prog.zoro", "3 - 5", []string{"run"}, 0, "-2\n", ""},
		{"run python", "prog.py", "if 1 > 2:\n    'a'\nelse:\n    'b'\n", []string{"run"}, 0, "b\n", ""},
		{"run statement", "prog.zoro", "while False do 1 endwhile", []string{"run"}, 0, "", ""},
		{
			"compile",
			"prog.zoro",
			"3 - 5",
			[]string{"compile"},
			0,
			"   0  PUSH          3\n   1  PUSH          5\n   2  -\n   3  HALT\n",
			"",
		},
		{"tokens", "prog.zoro", "1 <= 2", []string{"tokens"}, 0, "   1  Int(1)\n   1  Operator(<=)\n   1  Int(2)\n", ""},
		{"lexical error", "prog.zoro", `"open`, []string{"run"}, 1, "", "Lexical Error"},
		{"tokens lexical error", "prog.zoro", "1 $", []string{"tokens"}, 1, "   1  Int(1)\n", "Lexical Error"},
		{"parse error", "prog.zoro", "1 +", []string{"run"}, 1, "", "Parse Error"},
		{"python error", "prog.py", "x = 1", []string{"run"}, 1, "", "Parse Error"},
		{"compile error", "prog.zoro", "(while False do 1 endwhile) + 1", []string{"compile"}, 1, "", "Compilation Error"},
		{"runtime error", "prog.zoro", "1 // 0", []string{"run"}, 1, "", "Runtime Error"},
		{"gas", "prog.zoro", "while True do 1 endwhile", []string{"run", "-gas", "50"}, 1, "", "gas exhausted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, tt.file, tt.src)
			args := append([]string{tt.args[0], path}, tt.args[1:]...)

			var stdout, stderr bytes.Buffer
			code := run(args, &stdout, &stderr)
			if code != tt.code {
				t.Errorf("expected exit %d, got %d (stderr: %s)", tt.code, code, stderr.String())
			}
			if stdout.String() != tt.stdout {
				t.Errorf("expected stdout %q, got %q", tt.stdout, stdout.String())
			}
			if tt.stderrOK != "" && !strings.Contains(stderr.String(), tt.stderrOK) {
				t.Errorf("expected stderr to contain %q, got %q", tt.stderrOK, stderr.String())
			}
		})
	}
}

func TestRunVerbose(t *testing.T) {
	path := writeSource(t, "prog.zoro", "True and False")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"run", path, "-v"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "JMP_IF_FALSE") || !strings.HasSuffix(out, "False\n") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	path := writeSource(t, "prog.zoro", "1")
	if code := run([]string{"bogus", path}, &stdout, &stderr); code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Usage") {
		t.Errorf("expected usage text, got %q", stderr.String())
	}
}
