package masking

import "testing"

func TestMaskIdempotent(t *testing.T) {
	inputs := []string{
		"user 1.2.3.4 logged in at 2024-01-15T10:00:00Z with id 550e8400-e29b-41d4-a716-446655440000",
		"GET /api/v1/users/42 took 123.45ms",
		"contact admin@example.com or visit https://example.com/path?x=1",
		"plain text with no tokens",
		"deadbeefdeadbeefdeadbeef checksum",
	}
	for _, in := range inputs {
		once := Mask(in)
		twice := Mask(once)
		if once != twice {
			t.Fatalf("mask not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestMaskOrderTimestampBeforeNumbers(t *testing.T) {
	out := Mask("event at 2024-01-15T10:00:00Z")
	if out != "event at "+PlaceholderTimestamp {
		t.Fatalf("got %q", out)
	}
}

func TestMaskUUID(t *testing.T) {
	out := Mask("id=550e8400-e29b-41d4-a716-446655440000")
	if out != "id="+PlaceholderUUID {
		t.Fatalf("got %q", out)
	}
}

func TestMaskB64PlaceholderNotReMaskedByNumbers(t *testing.T) {
	out := Mask("token=deadbeefdeadbeefdeadbeef")
	if out != "token="+PlaceholderB64 {
		t.Fatalf("got %q, want <B64> left intact by the later number pass", out)
	}
}

func TestMaskEmailAndURL(t *testing.T) {
	out := Mask("mail admin@example.com see https://example.com/x")
	if out != "mail "+PlaceholderEmail+" see "+PlaceholderURL {
		t.Fatalf("got %q", out)
	}
}

func TestMaskIPv4(t *testing.T) {
	out := Mask("from 10.0.0.1 to 10.0.0.2")
	if out != "from "+PlaceholderIP+" to "+PlaceholderIP {
		t.Fatalf("got %q", out)
	}
}

func TestMaskNumbers(t *testing.T) {
	out := Mask("retry 3 after 1.5s")
	if out != "retry "+PlaceholderNum+" after "+PlaceholderNum+"s" {
		t.Fatalf("got %q", out)
	}
}

func TestIsPlaceholder(t *testing.T) {
	for _, p := range []string{PlaceholderNum, PlaceholderIP, PlaceholderEmail, PlaceholderTimestamp,
		PlaceholderUUID, PlaceholderPath, PlaceholderURL, PlaceholderHex, PlaceholderB64,
		PlaceholderClientIP, PlaceholderHTTPMethod} {
		if !IsPlaceholder(p) {
			t.Fatalf("expected %q to be a placeholder", p)
		}
	}
	if IsPlaceholder("not_a_placeholder") {
		t.Fatal("unexpected placeholder classification")
	}
}
