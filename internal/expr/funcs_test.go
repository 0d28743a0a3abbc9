package expr

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

func callString(t *testing.T, name string, args ...string) string {
	t.Helper()
	v, err := CallFunc(name, args)
	if err != nil {
		t.Fatalf("%s(%v) failed: %v", name, args, err)
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("%s(%v) = %T, want string", name, args, v)
	}
	return s
}

func TestRandomStringFunctions(t *testing.T) {
	tests := []struct {
		fn      string
		args    []string
		wantLen int
		pattern string
	}{
		{"randomString", nil, 10, `^[A-Za-z0-9]+$`},
		{"randomString", []string{"24"}, 24, `^[A-Za-z0-9]+$`},
		{"randomAlpha", nil, 10, `^[A-Za-z]+$`},
		{"randomNumeric", []string{"8"}, 8, `^[0-9]+$`},
		{"randomHex", nil, 16, `^[0-9a-f]+$`},
		{"randomHex", []string{"4"}, 4, `^[0-9a-f]+$`},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			got := callString(t, tt.fn, tt.args...)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
			if !regexp.MustCompile(tt.pattern).MatchString(got) {
				t.Errorf("%q does not match %s", got, tt.pattern)
			}
		})
	}
}

func TestRandomEmail(t *testing.T) {
	got := callString(t, "randomEmail")
	if !strings.HasSuffix(got, "@example.com") {
		t.Errorf("randomEmail() = %q, want @example.com suffix", got)
	}
	local := strings.TrimSuffix(got, "@example.com")
	if !regexp.MustCompile(`^[a-z]+$`).MatchString(local) {
		t.Errorf("local part %q not lowercase alpha", local)
	}
}

func TestRandomNumber(t *testing.T) {
	v, err := CallFunc("randomNumber", nil)
	if err != nil {
		t.Fatalf("randomNumber() failed: %v", err)
	}
	n, ok := v.(int64)
	if !ok {
		t.Fatalf("randomNumber() = %T, want int64", v)
	}
	// 6 цифр по умолчанию
	if n < 100000 || n > 999999 {
		t.Errorf("randomNumber() = %d, want 6 digits", n)
	}

	v, err = CallFunc("randomNumber", []string{"3"})
	if err != nil {
		t.Fatalf("randomNumber(3) failed: %v", err)
	}
	if n := v.(int64); n < 100 || n > 999 {
		t.Errorf("randomNumber(3) = %d, want 3 digits", n)
	}
}

func TestRandomChoice(t *testing.T) {
	opts := map[string]bool{"red": true, "green": true, "blue": true}

	for i := 0; i < 20; i++ {
		got := callString(t, "randomChoice", "red", "green", "blue")
		if !opts[got] {
			t.Fatalf("randomChoice returned %q, not among options", got)
		}
	}

	if _, err := CallFunc("randomChoice", nil); !errors.Is(err, ErrBadFunctionCall) {
		t.Errorf("randomChoice() error = %v, want ErrBadFunctionCall", err)
	}
}

func TestDateFunctions(t *testing.T) {
	dateRe := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	today := callString(t, "date")
	if !dateRe.MatchString(today) {
		t.Errorf("date() = %q, want YYYY-MM-DD", today)
	}
	if today != time.Now().Format("2006-01-02") {
		t.Errorf("date() = %q, want today", today)
	}

	custom := callString(t, "date", "%d/%m/%Y")
	if !regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`).MatchString(custom) {
		t.Errorf("date(%%d/%%m/%%Y) = %q", custom)
	}

	future := callString(t, "futureDate", "7")
	wantFuture := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	if future != wantFuture {
		t.Errorf("futureDate(7) = %q, want %q", future, wantFuture)
	}

	past := callString(t, "pastDate", "1")
	wantPast := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	if past != wantPast {
		t.Errorf("pastDate(1) = %q, want %q", past, wantPast)
	}

	withTime := callString(t, "futureDate", "1", "%Y-%m-%d %H:%M:%S")
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`).MatchString(withTime) {
		t.Errorf("futureDate with time format = %q", withTime)
	}
}

func TestTimestampFunctions(t *testing.T) {
	v, err := CallFunc("timestamp", nil)
	if err != nil {
		t.Fatalf("timestamp() failed: %v", err)
	}
	ts, ok := v.(int64)
	if !ok {
		t.Fatalf("timestamp() = %T, want int64", v)
	}
	now := time.Now().Unix()
	if ts < now-5 || ts > now+5 {
		t.Errorf("timestamp() = %d, far from now %d", ts, now)
	}

	iso := callString(t, "iso_timestamp")
	if _, err := time.Parse(time.RFC3339, iso); err != nil {
		t.Errorf("iso_timestamp() = %q, not RFC3339: %v", iso, err)
	}
}

func TestCallFuncErrors(t *testing.T) {
	tests := []struct {
		name    string
		fn      string
		args    []string
		wantErr error
	}{
		{"unknown function", "teleport", nil, ErrUnknownFunction},
		{"negative length", "randomString", []string{"-1"}, ErrBadFunctionCall},
		{"non-numeric length", "randomHex", []string{"x"}, ErrBadFunctionCall},
		{"too many digits", "randomNumber", []string{"19"}, ErrBadFunctionCall},
		{"negative days", "futureDate", []string{"-2"}, ErrBadFunctionCall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CallFunc(tt.fn, tt.args); !errors.Is(err, tt.wantErr) {
				t.Errorf("CallFunc(%s) error = %v, want %v", tt.fn, err, tt.wantErr)
			}
		})
	}
}
