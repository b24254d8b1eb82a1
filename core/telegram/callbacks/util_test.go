package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		cb           *tele.Callback
		key, payload string
	}{
		{nil, "", ""},
		{&tele.Callback{Unique: "publish", Data: ""}, "publish", ""},
		{&tele.Callback{Data: "\fdiscard|x"}, "discard", "x"},
		{&tele.Callback{Data: "preview"}, "preview", ""},
	}
	for _, tc := range cases {
		key, payload := ParseCallbackData(tc.cb)
		if key != tc.key || payload != tc.payload {
			t.Fatalf("ParseCallbackData(%+v) = %q, %q; want %q, %q", tc.cb, key, payload, tc.key, tc.payload)
		}
	}
}
