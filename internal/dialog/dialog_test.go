package dialog

import (
	"strings"
	"testing"

	"github.com/arenaleads/leadpipe/internal/models"
)

const testPhone = "972501234567"

func advanceAll(t *testing.T, texts ...string) (Result, models.ConversationState) {
	t.Helper()
	state := models.NewConversationState(testPhone)
	var res Result
	for _, text := range texts {
		res = Advance(state, text)
		state = res.Next
	}
	return res, state
}

func TestIdleGreetsWithOrderTypeButtons(t *testing.T) {
	res := Advance(models.NewConversationState(testPhone), "שלום")
	if res.Next.Stage != models.StageWaitingOrderType {
		t.Errorf("expected waiting_order_type, got %s", res.Next.Stage)
	}
	if res.Reply != promptOrderType {
		t.Errorf("unexpected reply %q", res.Reply)
	}
	if len(res.Buttons) != 2 {
		t.Errorf("expected two buttons, got %d", len(res.Buttons))
	}
	if res.Complete {
		t.Error("greeting turn must not complete")
	}
}

func TestIdleIgnoresMessageContent(t *testing.T) {
	for _, text := range []string{"", "שלום", "דחוף", "3"} {
		res := Advance(models.NewConversationState(testPhone), text)
		if res.Next.Stage != models.StageWaitingOrderType || res.Reply != promptOrderType {
			t.Errorf("input %q: expected greeting, got stage=%s reply=%q", text, res.Next.Stage, res.Reply)
		}
	}
}

func TestUnrecognizedInputReprompts(t *testing.T) {
	cases := []struct {
		stage models.StageType
		setup models.ConversationData
		reply string
	}{
		{models.StageWaitingOrderType, models.ConversationData{}, promptOrderTypeRetry},
		{models.StageWaitingPackageOrTickets, models.ConversationData{OrderType: models.OrderTypeNew}, promptPackageRetry},
		{models.StageWaitingUrgencyGeneral, models.ConversationData{OrderType: models.OrderTypeExisting}, promptUrgencyRetry},
	}
	for _, c := range cases {
		state := models.ConversationState{Phone: testPhone, Stage: c.stage, Data: c.setup}
		res := Advance(state, "בלה בלה")
		if res.Next.Stage != c.stage {
			t.Errorf("stage %s: expected stage unchanged, got %s", c.stage, res.Next.Stage)
		}
		if res.Next.Data != c.setup {
			t.Errorf("stage %s: data changed on re-prompt: %+v", c.stage, res.Next.Data)
		}
		if res.Reply != c.reply {
			t.Errorf("stage %s: expected retry prompt %q, got %q", c.stage, c.reply, res.Reply)
		}
		if res.Complete {
			t.Errorf("stage %s: re-prompt must not complete", c.stage)
		}
	}
}

func TestTicketsFlowSingleMessage(t *testing.T) {
	res, state := advanceAll(t, "שלום", "הזמנה חדשה", "כרטיסים", "ארסנל 3")
	if !res.Complete {
		t.Fatal("expected completion")
	}
	if state.Stage != models.StageDone {
		t.Errorf("expected done, got %s", state.Stage)
	}
	if state.Data.TicketsGame != "ארסנל" || state.Data.TicketsAmount != 3 {
		t.Errorf("unexpected collected data %+v", state.Data)
	}
	if !strings.Contains(res.Reply, TicketSiteLink) {
		t.Errorf("confirmation missing site link: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "ארסנל") || !strings.Contains(res.Reply, "3") {
		t.Errorf("confirmation missing game or amount: %q", res.Reply)
	}
}

func TestTicketsFlowSeparateAmount(t *testing.T) {
	res, _ := advanceAll(t, "שלום", "הזמנה חדשה", "כרטיסים", "ריאל מדריד")
	if res.Next.Stage != models.StageWaitingTicketsAmount {
		t.Fatalf("expected amount stage, got %s", res.Next.Stage)
	}
	if res.Reply != promptTicketsAmount {
		t.Errorf("unexpected reply %q", res.Reply)
	}
	if res.Next.Data.TicketsGame != "ריאל מדריד" {
		t.Errorf("game not stored: %+v", res.Next.Data)
	}

	// Non-numeric quantity re-prompts without losing the game.
	res2 := Advance(res.Next, "שניים")
	if res2.Next.Stage != models.StageWaitingTicketsAmount || res2.Reply != promptTicketsAmountRetry {
		t.Errorf("expected amount retry, got stage=%s reply=%q", res2.Next.Stage, res2.Reply)
	}

	res3 := Advance(res2.Next, "2")
	if !res3.Complete || res3.Next.Data.TicketsAmount != 2 {
		t.Errorf("expected completion with amount 2, got %+v", res3.Next.Data)
	}
}

func TestTicketsAmountRejectsZero(t *testing.T) {
	state := models.ConversationState{
		Phone: testPhone,
		Stage: models.StageWaitingTicketsAmount,
		Data:  models.ConversationData{RequestType: models.RequestTypeTickets, TicketsGame: "ארסנל"},
	}
	res := Advance(state, "0")
	if res.Complete || res.Reply != promptTicketsAmountRetry {
		t.Errorf("expected retry for zero, got %+v", res)
	}
}

func TestPackageFlow(t *testing.T) {
	res, state := advanceAll(t,
		"שלום", "הזמנה חדשה", "חבילה",
		"ריאל מדריד וברצלונה", "4", "0521234567", "בלי דגשים")
	if !res.Complete || state.Stage != models.StageDone {
		t.Fatalf("expected completion, got stage=%s complete=%v", state.Stage, res.Complete)
	}
	d := state.Data
	if d.PackageGames != "ריאל מדריד וברצלונה" || d.PackagePeople != "4" || d.PhoneNumber != "0521234567" {
		t.Errorf("unexpected collected data %+v", d)
	}
	if d.PackageNotes == nil || *d.PackageNotes != "בלי דגשים" {
		t.Errorf("notes not stored: %+v", d.PackageNotes)
	}
	for _, part := range []string{"ריאל מדריד וברצלונה", "4", "0521234567", "בלי דגשים"} {
		if !strings.Contains(res.Reply, part) {
			t.Errorf("summary missing %q: %q", part, res.Reply)
		}
	}
}

func TestPackagePhoneValidation(t *testing.T) {
	res, _ := advanceAll(t,
		"שלום", "הזמנה חדשה", "חבילה", "ברצלונה", "2", "1234567")
	if res.Next.Stage != models.StageWaitingPackageDetails || res.Reply != promptPackagePhoneRetry {
		t.Fatalf("expected phone retry for seven digits, got stage=%s reply=%q", res.Next.Stage, res.Reply)
	}
	if res.Next.Data.PhoneNumber != "" {
		t.Errorf("short phone must not be stored: %+v", res.Next.Data)
	}

	// Eight digits is the acceptance boundary.
	res2 := Advance(res.Next, "12345678")
	if res2.Next.Data.PhoneNumber != "12345678" || res2.Reply != promptPackageNotes {
		t.Errorf("expected eight digits accepted, got phone=%q reply=%q", res2.Next.Data.PhoneNumber, res2.Reply)
	}

	// Formatted numbers are accepted digits-only.
	res3, _ := advanceAll(t,
		"שלום", "הזמנה חדשה", "חבילה", "ברצלונה", "2", "052-123-4567")
	if res3.Next.Data.PhoneNumber != "0521234567" {
		t.Errorf("expected digits-only phone, got %q", res3.Next.Data.PhoneNumber)
	}
}

func TestPackageNoNotesKeyword(t *testing.T) {
	res, state := advanceAll(t,
		"שלום", "הזמנה חדשה", "חבילה", "ברצלונה", "2", "0521234567", "אין")
	if !res.Complete {
		t.Fatal("expected completion")
	}
	if state.Data.PackageNotes == nil || *state.Data.PackageNotes != "" {
		t.Errorf("expected empty notes for 'אין', got %+v", state.Data.PackageNotes)
	}
	// The summary still lists all four fields.
	if !strings.Contains(res.Reply, "דגשים") {
		t.Errorf("summary missing notes line: %q", res.Reply)
	}
}

func TestExistingOrderUrgent(t *testing.T) {
	res, state := advanceAll(t, "שלום", "הזמנה קיימת", "דחוף")
	if !res.Complete || state.Stage != models.StageDone {
		t.Fatalf("expected urgent completion, got stage=%s complete=%v", state.Stage, res.Complete)
	}
	if state.Data.IsUrgent == nil || !*state.Data.IsUrgent {
		t.Errorf("urgency not recorded: %+v", state.Data)
	}
	if !strings.Contains(res.Reply, "0535515522") {
		t.Errorf("emergency number missing from reply: %q", res.Reply)
	}
}

func TestExistingOrderNotUrgent(t *testing.T) {
	res, state := advanceAll(t, "שלום", "הזמנה קיימת", "לא דחוף")
	if res.Complete {
		t.Fatal("not-urgent path must continue to the request stage")
	}
	if state.Stage != models.StageWaitingGeneralRequest {
		t.Errorf("expected general request stage, got %s", state.Stage)
	}
	if state.Data.IsUrgent == nil || *state.Data.IsUrgent {
		t.Errorf("urgency flag wrong: %+v", state.Data)
	}
	if res.Reply != promptGeneralRequest {
		t.Errorf("unexpected reply %q", res.Reply)
	}
}

func TestUrgencyFreeTextTieBreak(t *testing.T) {
	base := models.ConversationState{
		Phone: testPhone,
		Stage: models.StageWaitingUrgencyGeneral,
		Data:  models.ConversationData{OrderType: models.OrderTypeExisting},
	}

	// "ממש דחוף" carries only the urgent marker.
	res := Advance(base, "ממש דחוף")
	if !res.Complete || res.Next.Data.IsUrgent == nil || !*res.Next.Data.IsUrgent {
		t.Errorf("expected urgent for %q, got %+v", "ממש דחוף", res.Next.Data)
	}

	// "יכול לחכות" is a pure negative marker.
	res = Advance(base, "יכול לחכות")
	if res.Next.Stage != models.StageWaitingGeneralRequest {
		t.Errorf("expected not-urgent continuation for %q, got %s", "יכול לחכות", res.Next.Stage)
	}

	// A negative phrase containing the urgent marker ("זה לא דחוף") still
	// resolves not-urgent via the exact-match path only when normalized;
	// here it falls through to keywords where both match and "דחוף" wins.
	res = Advance(base, "זה לא דחוף בכלל")
	if !res.Complete {
		t.Errorf("expected urgent-wins tie break for %q, got stage %s", "זה לא דחוף בכלל", res.Next.Stage)
	}
}

func TestGeneralRequestCompletes(t *testing.T) {
	res, state := advanceAll(t, "שלום", "הזמנה קיימת", "לא דחוף", "רציתי לשנות מושבים")
	if !res.Complete || state.Stage != models.StageDone {
		t.Fatalf("expected completion, got stage=%s", state.Stage)
	}
	if state.Data.GeneralRequest != "רציתי לשנות מושבים" {
		t.Errorf("request not stored: %+v", state.Data)
	}
	if res.Reply != promptGeneralThanks {
		t.Errorf("unexpected reply %q", res.Reply)
	}
}

func TestDoneResetsToIdle(t *testing.T) {
	_, state := advanceAll(t, "שלום", "הזמנה קיימת", "דחוף")
	res := Advance(state, "תודה")
	if res.Next.Stage != models.StageIdle {
		t.Errorf("expected idle after done, got %s", res.Next.Stage)
	}
	if !res.Next.Data.IsEmpty() {
		t.Errorf("expected data cleared, got %+v", res.Next.Data)
	}
	if res.Reply != promptAnythingElse {
		t.Errorf("unexpected reply %q", res.Reply)
	}
	if res.Complete {
		t.Error("reset turn must not complete")
	}

	// The next message starts a fresh cycle.
	res2 := Advance(res.Next, "שלום")
	if res2.Next.Stage != models.StageWaitingOrderType || res2.Reply != promptOrderType {
		t.Errorf("expected fresh greeting, got stage=%s reply=%q", res2.Next.Stage, res2.Reply)
	}
}

func TestUnknownStageResets(t *testing.T) {
	state := models.ConversationState{
		Phone: testPhone,
		Stage: models.StageType("waiting_legacy_thing"),
		Data:  models.ConversationData{TicketsGame: "ארסנל"},
	}
	res := Advance(state, "שלום")
	if res.Next.Stage != models.StageIdle || !res.Next.Data.IsEmpty() {
		t.Errorf("expected reset, got %+v", res.Next)
	}
	if res.Reply != promptRestarted {
		t.Errorf("unexpected reply %q", res.Reply)
	}
}

func TestButtonIDsAcceptedAsInput(t *testing.T) {
	res, _ := advanceAll(t, "שלום", "new_order")
	if res.Next.Stage != models.StageWaitingPackageOrTickets {
		t.Errorf("expected button id to select new order, got %s", res.Next.Stage)
	}

	res, _ = advanceAll(t, "שלום", "existing_order", "urgent")
	if !res.Complete {
		t.Errorf("expected button ids to drive urgent path, got %+v", res.Next)
	}
}

func TestInputTrimmedBeforeMatching(t *testing.T) {
	res, _ := advanceAll(t, "שלום", "  הזמנה חדשה  ")
	if res.Next.Stage != models.StageWaitingPackageOrTickets {
		t.Errorf("expected trimmed match, got %s", res.Next.Stage)
	}
}
