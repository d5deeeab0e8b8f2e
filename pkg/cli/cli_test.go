package cli

import "testing"

func TestParseArgsValid(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name:     "no arguments",
			args:     []string{},
			expected: Config{},
		},
		{
			name:     "path only",
			args:     []string{"song.oxm"},
			expected: Config{Path: "song.oxm"},
		},
		{
			name:     "new flag",
			args:     []string{"--new"},
			expected: Config{New: true},
		},
		{
			name:     "soundfont flag",
			args:     []string{"--soundfont", "a.sf2"},
			expected: Config{SoundFontPath: "a.sf2"},
		},
		{
			name:     "help flag shorthand",
			args:     []string{"-h"},
			expected: Config{ShowHelp: true},
		},
		{
			name:     "path after flags",
			args:     []string{"--new", "--soundfont", "a.sf2", "song.json"},
			expected: Config{Path: "song.json", New: true, SoundFontPath: "a.sf2"},
		},
		{
			name:     "path before flags",
			args:     []string{"song.mid", "--new"},
			expected: Config{Path: "song.mid", New: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *config != tt.expected {
				t.Errorf("ParseArgs(%v) = %+v, want %+v", tt.args, *config, tt.expected)
			}
		})
	}
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	if _, err := ParseArgs([]string{"--bogus"}); err == nil {
		t.Error("expected an error for an unrecognized flag")
	}
}
