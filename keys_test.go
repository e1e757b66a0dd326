package nanocom

import (
	"errors"
	"testing"
)

func TestDescriptionToKeyRoundTrip(t *testing.T) {
	descriptions := []string{"[", "\\", "]", "^", "_", "@"}
	for c := 'A'; c <= 'Z'; c++ {
		descriptions = append(descriptions, string(c))
	}

	for _, desc := range descriptions {
		key, err := DescriptionToKey(desc)
		if err != nil {
			t.Errorf("DescriptionToKey(%q) failed: %v", desc, err)
			continue
		}
		if key < 0 || key > 0x1f {
			t.Errorf("DescriptionToKey(%q) = %#x, expected a control character", desc, key)
		}
		if got := KeyToDescription(key); got != desc {
			t.Errorf("KeyToDescription(%#x) = %q, want %q", key, got, desc)
		}
	}
}

func TestDescriptionToKeyValues(t *testing.T) {
	tests := []struct {
		desc string
		want rune
	}{
		{"]", 0x1d},
		{"X", 0x18},
		{"G", 0x07},
		{"C", KeyInterrupt},
		{"@", 0x00},
		{"_", 0x1f},
	}

	for _, tt := range tests {
		got, err := DescriptionToKey(tt.desc)
		if err != nil {
			t.Errorf("DescriptionToKey(%q) failed: %v", tt.desc, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DescriptionToKey(%q) = %#x, want %#x", tt.desc, got, tt.want)
		}
	}
}

func TestDescriptionToKeyRejects(t *testing.T) {
	for _, desc := range []string{"", "a", "z", "?", "`", "AB", "é", "1"} {
		if _, err := DescriptionToKey(desc); !errors.Is(err, ErrInvalidExitChar) {
			t.Errorf("DescriptionToKey(%q): expected ErrInvalidExitChar, got %v", desc, err)
		}
	}
}

func TestParseCharMap(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    CharMap
		wantErr bool
	}{
		{
			name: "empty",
		},
		{
			name:    "single",
			entries: []string{"\t=<TAB>"},
			want:    CharMap{'\t': "<TAB>"},
		},
		{
			name:    "empty value",
			entries: []string{"q="},
			want:    CharMap{'q': ""},
		},
		{
			name:    "value containing separator",
			entries: []string{"==x=y"},
			want:    CharMap{'=': "x=y"},
		},
		{
			name:    "multi-byte key",
			entries: []string{"€=EUR"},
			want:    CharMap{'€': "EUR"},
		},
		{
			name:    "later entry wins",
			entries: []string{"a=1", "a=2"},
			want:    CharMap{'a': "2"},
		},
		{
			name:    "missing separator",
			entries: []string{"ab"},
			wantErr: true,
		},
		{
			name:    "multi-character key",
			entries: []string{"ab=c"},
			wantErr: true,
		},
		{
			name:    "empty entry",
			entries: []string{""},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCharMap(tt.entries)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMapping) {
					t.Errorf("Expected ErrInvalidMapping, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCharMap failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d entries, got %d", len(tt.want), len(got))
			}
			for k, v := range tt.want {
				if s, ok := got.Lookup(k); !ok || s != v {
					t.Errorf("Lookup(%q) = %q, %v; want %q", k, s, ok, v)
				}
			}
		})
	}
}

func TestWithCharMapCopies(t *testing.T) {
	m := CharMap{'a': "b"}
	config := DefaultConfig()
	if err := WithCharMap(m)(&config); err != nil {
		t.Fatalf("WithCharMap failed: %v", err)
	}

	m['a'] = "changed"
	if s, _ := config.CharMap.Lookup('a'); s != "b" {
		t.Errorf("Expected copied map to keep %q, got %q", "b", s)
	}
}
