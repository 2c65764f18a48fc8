package tui

import (
	"fmt"
	"strings"

	"github.com/guilherme-santos/calmanager/internal"
	"github.com/guilherme-santos/calmanager/internal/confirm"
	"github.com/guilherme-santos/calmanager/internal/viewmodel"
)

const (
	Title           = "Calendar Manager"
	LoadingText     = "Loading calendar accounts"
	EmptyText       = "It seems that we did not find any calendar accounts"
	NotGrantedText  = "Calendar access has not been granted yet. Run `calmanager login` and press r."
	DialogTitle     = "Delete calendar account"
	ConfirmLabel    = "Confirm"
	CancelLabel     = "Cancel"
	errorTextPrefix = "Unable to load calendar accounts: "
)

// RenderAccounts renders the account list for st. spinner is what to show
// next to the loading text.
func RenderAccounts(st viewmodel.FetchState, cursor int, spinner string) string {
	switch st.Status {
	case viewmodel.Loading:
		return MessageStyle().Render(strings.TrimSpace(spinner + " " + LoadingText))
	case viewmodel.Error:
		return ErrorStyle().Render(errorTextPrefix+st.Err.Error()) + "\n" +
			MessageStyle().Render(DetailStyle().Render("press r to try again"))
	}

	if len(st.Accounts) == 0 {
		return MessageStyle().Render(EmptyText)
	}

	rows := make([]string, len(st.Accounts))
	for i, acc := range st.Accounts {
		rows[i] = RenderRow(acc, i == cursor)
	}
	return strings.Join(rows, "\n")
}

func RenderRow(acc internal.Account, selected bool) string {
	detail := fmt.Sprintf("%s · %s · id %d", acc.AccountName, acc.OwnerName, acc.ID)
	return RowStyle(selected).Render(
		NameStyle().Render(acc.DisplayName) + "\n" + DetailStyle().Render(detail),
	)
}

// RenderDialog renders the delete confirmation, or nothing when closed.
func RenderDialog(snap confirm.Snapshot) string {
	if !snap.Open() {
		return ""
	}

	confirmLabel := ConfirmLabel
	if !snap.CanConfirm() {
		confirmLabel = fmt.Sprintf("%s(%d)", ConfirmLabel, snap.Remaining)
	}
	body := NameStyle().Render(DialogTitle) + "\n\n" +
		fmt.Sprintf("Delete %s? This cannot be undone.", snap.Target.Label()) + "\n\n" +
		ButtonStyle(false).Render("["+CancelLabel+" esc]") + " " +
		ButtonStyle(snap.CanConfirm()).Render("["+confirmLabel+" enter]")
	return DialogStyle().Render(body)
}

func RenderHelp(dialogOpen bool) string {
	help := "↑/↓ move · d delete · r reload · q quit"
	if dialogOpen {
		help = "esc cancel · enter confirm"
	}
	return MessageStyle().Render(DetailStyle().Render(help))
}
