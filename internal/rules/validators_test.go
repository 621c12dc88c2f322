package rules

import "testing"

func TestKnownFormat(t *testing.T) {
	for _, name := range []string{"email", "phone", "ssn_masked", "monetary", "date"} {
		if !KnownFormat(name) {
			t.Errorf("format %q should be known", name)
		}
	}
	if KnownFormat("zipcode") {
		t.Error("unregistered format should not be known")
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"agent@realty.com", "first.last+tag@sub.example.co"}
	invalid := []string{"not-an-email", "missing@tld", "@example.com", "agent@.com"}

	for _, value := range valid {
		if !validEmail(value) {
			t.Errorf("expected %q to be a valid email", value)
		}
	}
	for _, value := range invalid {
		if validEmail(value) {
			t.Errorf("expected %q to be rejected", value)
		}
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{"(555) 867-5309", "555-867-5309", "15558675309", "555.867.5309"}
	invalid := []string{"867-5309", "555-867-53091234", "call me"}

	for _, value := range valid {
		if !validPhone(value) {
			t.Errorf("expected %q to be a valid phone", value)
		}
	}
	for _, value := range invalid {
		if validPhone(value) {
			t.Errorf("expected %q to be rejected", value)
		}
	}
}

func TestValidMaskedSSN(t *testing.T) {
	valid := []string{"***-**-1234", "XXX-XX-1234", "xxxxx1234"}
	invalid := []string{"123-45-6789", "***-**-12", "***-**-abcd"}

	for _, value := range valid {
		if !validMaskedSSN(value) {
			t.Errorf("expected %q to be a valid masked SSN", value)
		}
	}
	for _, value := range invalid {
		if validMaskedSSN(value) {
			t.Errorf("expected %q to be rejected", value)
		}
	}
}

func TestValidMonetary(t *testing.T) {
	valid := []string{"$500,000.00", "500000", "$1,250.5", "$0.99", "42"}
	invalid := []string{"$1,23.00", "five hundred", "$", "1.234"}

	for _, value := range valid {
		if !validMonetary(value) {
			t.Errorf("expected %q to be a valid monetary value", value)
		}
	}
	for _, value := range invalid {
		if validMonetary(value) {
			t.Errorf("expected %q to be rejected", value)
		}
	}
}

func TestValidDate(t *testing.T) {
	valid := []string{"2026-09-15", "09/15/2026", "2026-09-15T10:30:00", "2026-09-15 10:30:00"}
	invalid := []string{"September 15th", "2026-13-45", "soon"}

	for _, value := range valid {
		if !validDate(value) {
			t.Errorf("expected %q to be a valid date", value)
		}
	}
	for _, value := range invalid {
		if validDate(value) {
			t.Errorf("expected %q to be rejected", value)
		}
	}
}

func TestParseAmount(t *testing.T) {
	amount, ok := parseAmount("$1,234,567.89")
	if !ok || amount != 1234567.89 {
		t.Fatalf("expected 1234567.89, got %v (ok=%v)", amount, ok)
	}
	if _, ok := parseAmount("n/a"); ok {
		t.Fatal("non-numeric value should not parse")
	}
	amount, ok = parseAmount("-250.75")
	if !ok || amount != -250.75 {
		t.Fatalf("expected -250.75, got %v (ok=%v)", amount, ok)
	}
}
