package keyboard

import "testing"

func TestGridWrapsRows(t *testing.T) {
	markup := Grid([]Button{
		{Label: "Publish", Unique: "publish"},
		{Label: "Discard", Unique: "discard"},
		{Label: "Preview", Unique: "preview"},
	}, 2)
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(markup.InlineKeyboard))
	}
	if len(markup.InlineKeyboard[0]) != 2 || len(markup.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected layout %+v", markup.InlineKeyboard)
	}
	if b := markup.InlineKeyboard[0][1]; b.Unique != "discard" || b.Text != "Discard" {
		t.Fatalf("second button = %+v", b)
	}
}

func TestGridClampsRowWidth(t *testing.T) {
	markup := Grid([]Button{{Label: "a", Unique: "a"}, {Label: "b", Unique: "b"}}, 0)
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want one button per row", len(markup.InlineKeyboard))
	}
}

func TestRowsSkipsEmpty(t *testing.T) {
	markup := Rows(nil, []Button{{Label: "x", Unique: "x"}})
	if len(markup.InlineKeyboard) != 1 {
		t.Fatalf("rows = %d, want 1", len(markup.InlineKeyboard))
	}
}
