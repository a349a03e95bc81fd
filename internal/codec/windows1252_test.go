package codec

import "testing"

func TestEncodeDecodeWindows1252_RoundTrip(t *testing.T) {
	tests := []string{
		"Blank.esp",
		"Oblivion.esm",
		"Blàñk.esp",
		"Dépendance.esm",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			encoded, err := EncodeWindows1252(name)
			if err != nil {
				t.Fatalf("EncodeWindows1252(%q) failed: %v", name, err)
			}

			decoded, err := DecodeWindows1252(encoded)
			if err != nil {
				t.Fatalf("DecodeWindows1252 failed: %v", err)
			}

			if decoded != name {
				t.Errorf("round trip: got %q, expected %q", decoded, name)
			}
		})
	}
}

func TestEncodeWindows1252_RejectsUnrepresentable(t *testing.T) {
	if _, err := EncodeWindows1252("プラグイン.esp"); err == nil {
		t.Error("expected EncodeWindows1252 to reject characters outside windows-1252")
	}
}

func TestEncodeWindows1252_ErrorNamesText(t *testing.T) {
	_, err := EncodeWindows1252("プラグイン.esp")
	if err == nil {
		t.Fatal("expected error")
	}

	var encErr *EncodeError
	if !asEncodeError(err, &encErr) {
		t.Fatalf("expected *EncodeError, got %T", err)
	}
	if encErr.Text != "プラグイン.esp" {
		t.Errorf("EncodeError.Text = %q", encErr.Text)
	}
}

func asEncodeError(err error, target **EncodeError) bool {
	if e, ok := err.(*EncodeError); ok {
		*target = e
		return true
	}
	return false
}
