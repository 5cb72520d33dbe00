package util

import "testing"

func TestNormalizeAddress_Basic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Name <User@Example.COM>`, "user@example.com"},
		{`"Name" <user+news@Example.com>`, "user+news@example.com"}, // aliases kept
		{`user@EXAMPLE.com`, "user@example.com"},
		{"  jane@example.com \t", "jane@example.com"},
		{`Doe, Jane <jane@Example.com>`, "jane@example.com"}, // unquoted comma in name
		{`=?UTF-8?B?SsO2cmc=?= <jorg@example.de>`, "jorg@example.de"},
		{`"A" <not-an-email> , "B" <c@D.com>`, "c@d.com"},
		{`A <a@x.com>, B <b@y.com>`, "a@x.com"},
		{`a@x.com, b@y.com`, "a@x.com"},
		{`bad address`, ""},
		{`<>`, ""},
		{`user@`, ""},
		{`@example.com`, ""},
		{``, ""},
		{`   `, ""},
	}
	for _, tc := range tests {
		if got := NormalizeAddress(tc.in); got != tc.want {
			t.Errorf("NormalizeAddress(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAddress_Idempotent(t *testing.T) {
	inputs := []string{
		`Name <User@Example.COM>`,
		`user.name@example.com`,
		`"Shop" <NEWS+promo@shop.example>`,
	}
	for _, in := range inputs {
		once := NormalizeAddress(in)
		if once == "" {
			t.Fatalf("NormalizeAddress(%q) unexpectedly empty", in)
		}
		if twice := NormalizeAddress(once); twice != once {
			t.Errorf("NormalizeAddress(%q) = %q; want unchanged", once, twice)
		}
	}
}
