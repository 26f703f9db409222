//go:build !integration

package usecase_test

import (
	"strings"
	"testing"

	"telegram-object-publisher/internal/usecase"
)

const testTemplate = "Звоните: @agency_desk\n+998 71 200 00 00"

func TestSanitizerTransform(t *testing.T) {
	s := usecase.NewSanitizer(nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "strips phone and handle below the price line",
			raw:  "Цена 50000$\n+998 90 123 45 67\n@ivanov",
			want: "Цена 50000$\n\n" + testTemplate,
		},
		{
			name: "removes numbering lines anywhere",
			raw:  "#3\nПродается дом\n4)\nУчасток 6 соток\n12.",
			want: "Продается дом\nУчасток 6 соток\n\n" + testTemplate,
		},
		{
			name: "drops blank lines",
			raw:  "Первая строка\n\n   \nВторая строка",
			want: "Первая строка\nВторая строка\n\n" + testTemplate,
		},
		{
			name: "only contact lines collapse to the template",
			raw:  "Тел: 90 123 45 67\n@owner\n+998901234567 Олег",
			want: testTemplate,
		},
		{
			name: "empty text yields the template",
			raw:  "",
			want: testTemplate,
		},
		{
			name: "keyword phrase is case-insensitive",
			raw:  "Квартира у метро\nПО ВСЕМ ВОПРОСАМ обращайтесь в личку",
			want: "Квартира у метро\n\n" + testTemplate,
		},
		{
			name: "digit ratio catches unusual phone layouts",
			raw:  "Дача\n90/123/45/67 тг",
			want: "Дача\n\n" + testTemplate,
		},
		{
			name: "interleaved contact lines stay in the body",
			raw:  "Дом\n@owner\nБассейн",
			want: "Дом\n@owner\nБассейн\n\n" + testTemplate,
		},
		{
			name: "windows line endings",
			raw:  "Гараж\r\n+998 90 123 45 67",
			want: "Гараж\n\n" + testTemplate,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Transform(tc.raw, testTemplate)
			if got != tc.want {
				t.Errorf("Transform() mismatch\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestSanitizerPassThroughCleanBody(t *testing.T) {
	s := usecase.NewSanitizer(nil)
	body := "Продается 2-комнатная квартира\nЭтаж 3 из 9\nЦена 65000$"

	got := s.Transform(body, testTemplate)
	if want := body + "\n\n" + testTemplate; got != want {
		t.Fatalf("expected body plus template\n got: %q\nwant: %q", got, want)
	}
}

func TestSanitizerIdempotentOnOwnOutput(t *testing.T) {
	s := usecase.NewSanitizer(nil)
	raw := "Участок 10 соток\nЦена 20000$\n+998 90 123 45 67\n@seller"

	first := s.Transform(raw, testTemplate)
	second := s.Transform(first, testTemplate)
	if second != first {
		t.Fatalf("second pass changed the output\nfirst:  %q\nsecond: %q", first, second)
	}
	if !strings.HasPrefix(second, "Участок 10 соток\nЦена 20000$") {
		t.Fatalf("body was truncated: %q", second)
	}
}

func TestSanitizerEmptyTemplate(t *testing.T) {
	s := usecase.NewSanitizer(nil)
	if got := s.Transform("Дом\n@owner", ""); got != "Дом\n\n" {
		t.Fatalf("expected body and separator, got %q", got)
	}
	if got := s.Transform("@owner", ""); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestContactRules(t *testing.T) {
	s := usecase.NewSanitizer([]string{"связь"})

	tests := []struct {
		line string
		rule string
	}{
		{"@ivanov", "handle"},
		{"  @ivanov  ", "handle"},
		{"@ivanov и @petrov", ""},
		{"+998 90 123 45 67", "phone"},
		{"8 (901) 123-45-67", "phone"},
		{"+998901234567 Олег", "phone"},
		{"Связь через бота", "keyword"},
		{"Звоните сейчас", ""}, // custom keyword set replaces the defaults
		{"Цена 50000$", ""},
		{"Площадь 120 м2", ""},
		{"№ 1234567", "digit_ratio"},
		{"Телефон ниже", ""},
	}
	for _, tc := range tests {
		if got := s.MatchingRule(tc.line); got != tc.rule {
			t.Errorf("MatchingRule(%q) = %q, want %q", tc.line, got, tc.rule)
		}
	}
}

func TestCustomRuleTable(t *testing.T) {
	onlyHandles := usecase.NewSanitizerWithRules([]usecase.ContactRule{
		{Name: "handle", Match: func(line string) bool { return strings.HasPrefix(line, "@") }},
	})
	got := onlyHandles.Transform("Дом\n+998 90 123 45 67\n@owner", "T")
	if want := "Дом\n+998 90 123 45 67\n\nT"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
