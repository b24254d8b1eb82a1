// Package keyboard builds inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button routed by its unique key. Data is the optional
// payload that follows the key in callback data.
type Button struct {
	Label  string
	Unique string
	Data   string
}

func (b Button) inline() tele.InlineButton {
	return tele.InlineButton{Unique: b.Unique, Text: b.Label, Data: b.Data}
}

// Rows lays buttons out exactly as given.
func Rows(rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{InlineKeyboard: make([][]tele.InlineButton, 0, len(rows))}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, len(row))
		for i, b := range row {
			line[i] = b.inline()
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, line)
	}
	return markup
}

// Grid wraps buttons into rows of at most perRow.
func Grid(buttons []Button, perRow int) *tele.ReplyMarkup {
	perRow = max(perRow, 1)
	rows := make([][]Button, 0, (len(buttons)+perRow-1)/perRow)
	for len(buttons) > 0 {
		n := min(perRow, len(buttons))
		rows = append(rows, buttons[:n])
		buttons = buttons[n:]
	}
	return Rows(rows...)
}
