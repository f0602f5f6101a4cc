// Package dialog implements the intake dialogue engine for LeadPipe.
//
// The engine is a pure transition function over a closed set of stages: it
// takes the persisted conversation state plus the incoming text and computes
// the next state, an optional reply with quick-reply buttons, and a flag
// marking that the dialogue just completed. Every stage has an explicit
// re-prompt for unrecognized input, so a conversation can never get stuck.
// Persistence and message delivery are the caller's concern.
package dialog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arenaleads/leadpipe/internal/models"
)

// Result is the outcome of one dialogue turn.
type Result struct {
	// Next is the state to persist, replacing the current record.
	Next models.ConversationState
	// Reply is the outgoing message; empty means nothing to send.
	Reply string
	// Buttons are optional quick-reply affordances attached to Reply.
	Buttons []models.Button
	// Complete marks that this turn reached a terminal collection point.
	Complete bool
}

// minPhoneDigits is the shortest callback phone accepted at the package
// details phone slot.
const minPhoneDigits = 8

// gameAmountRe splits "<game name> <quantity>" input: longest leading
// non-digit run as the name, trailing digit run as the quantity.
var gameAmountRe = regexp.MustCompile(`^(\D+?)\s*(\d+)\s*$`)

var nonDigitRe = regexp.MustCompile(`\D`)

// Advance computes one turn of the dialogue. It never fails: malformed input
// is answered with a re-prompt of the current stage, and an unknown stage
// value resets the conversation.
func Advance(current models.ConversationState, incoming string) Result {
	text := strings.TrimSpace(incoming)
	next := current
	next.UpdatedAt = time.Now()

	// A stored stage this build does not know (older data, manual edits):
	// reset rather than guess.
	if !models.IsValidStage(current.Stage) {
		next.Stage = models.StageIdle
		next.Data = models.ConversationData{}
		return Result{Next: next, Reply: promptRestarted}
	}

	switch current.Stage {
	case models.StageIdle:
		next.Stage = models.StageWaitingOrderType
		return Result{Next: next, Reply: promptOrderType, Buttons: orderTypeButtons()}

	case models.StageWaitingOrderType:
		return advanceOrderType(next, text)

	case models.StageWaitingPackageOrTickets:
		return advancePackageOrTickets(next, text)

	case models.StageWaitingTicketsGame:
		return advanceTicketsGame(next, text)

	case models.StageWaitingTicketsAmount:
		return advanceTicketsAmount(next, text)

	case models.StageWaitingPackageDetails:
		return advancePackageDetails(next, text)

	case models.StageWaitingUrgencyGeneral:
		return advanceUrgency(next, text)

	case models.StageWaitingGeneralRequest:
		next.Data.GeneralRequest = text
		next.Stage = models.StageDone
		return Result{Next: next, Reply: promptGeneralThanks, Complete: true}

	case models.StageDone:
		next.Stage = models.StageIdle
		next.Data = models.ConversationData{}
		return Result{Next: next, Reply: promptAnythingElse}
	}

	// Unreachable: the IsValidStage guard admits only the stages handled above.
	return Result{Next: next, Reply: promptRestarted}
}

func advanceOrderType(next models.ConversationState, text string) Result {
	switch {
	case containsAny(text, newOrderKeywords):
		next.Data.OrderType = models.OrderTypeNew
		next.Stage = models.StageWaitingPackageOrTickets
		return Result{Next: next, Reply: promptPackageOrTickets, Buttons: packageOrTicketsButtons()}
	case containsAny(text, existingOrderKeywords):
		next.Data.OrderType = models.OrderTypeExisting
		next.Stage = models.StageWaitingUrgencyGeneral
		return Result{Next: next, Reply: promptUrgency, Buttons: urgencyButtons()}
	}
	return Result{Next: next, Reply: promptOrderTypeRetry, Buttons: orderTypeButtons()}
}

func advancePackageOrTickets(next models.ConversationState, text string) Result {
	switch {
	case containsAny(text, ticketsKeywords) || equalsFold(text, buttonTickets):
		next.Data.RequestType = models.RequestTypeTickets
		next.Stage = models.StageWaitingTicketsGame
		return Result{Next: next, Reply: promptTicketsGame}
	case containsAny(text, packageKeywords) || equalsFold(text, buttonPackage):
		next.Data.RequestType = models.RequestTypePackage
		next.Stage = models.StageWaitingPackageDetails
		return Result{Next: next, Reply: promptPackageDetails}
	}
	return Result{Next: next, Reply: promptPackageRetry, Buttons: packageOrTicketsButtons()}
}

func advanceTicketsGame(next models.ConversationState, text string) Result {
	if m := gameAmountRe.FindStringSubmatch(text); m != nil {
		amount, err := strconv.Atoi(m[2])
		if err == nil && amount > 0 {
			next.Data.TicketsGame = strings.TrimSpace(m[1])
			next.Data.TicketsAmount = amount
			next.Stage = models.StageDone
			return Result{Next: next, Reply: ticketsConfirmation(next.Data.TicketsGame, amount), Complete: true}
		}
	}
	// No usable quantity in the text: keep it as the game name, ask for the
	// quantity separately.
	next.Data.TicketsGame = text
	next.Stage = models.StageWaitingTicketsAmount
	return Result{Next: next, Reply: promptTicketsAmount}
}

func advanceTicketsAmount(next models.ConversationState, text string) Result {
	amount, err := strconv.Atoi(digitsOnly(text))
	if err != nil || amount <= 0 {
		return Result{Next: next, Reply: promptTicketsAmountRetry}
	}
	next.Data.TicketsAmount = amount
	next.Stage = models.StageDone
	return Result{Next: next, Reply: ticketsConfirmation(next.Data.TicketsGame, amount), Complete: true}
}

// advancePackageDetails fills the four package slots in fixed order, consuming
// the input into the first slot still unset.
func advancePackageDetails(next models.ConversationState, text string) Result {
	d := &next.Data
	switch {
	case d.PackageGames == "":
		d.PackageGames = text
		return Result{Next: next, Reply: promptPackagePeople}

	case d.PackagePeople == "":
		d.PackagePeople = text
		return Result{Next: next, Reply: promptPackagePhone}

	case d.PhoneNumber == "":
		digits := digitsOnly(text)
		if len(digits) < minPhoneDigits {
			return Result{Next: next, Reply: promptPackagePhoneRetry}
		}
		d.PhoneNumber = digits
		return Result{Next: next, Reply: promptPackageNotes}

	default:
		notes := text
		if notes == noNotesKeyword {
			notes = ""
		}
		d.PackageNotes = &notes
		next.Stage = models.StageDone
		return Result{Next: next, Reply: packageSummary(*d), Complete: true}
	}
}

func advanceUrgency(next models.ConversationState, text string) Result {
	normalized := strings.Join(strings.Fields(text), " ")

	// Button payloads and exact answers first.
	if normalized == "דחוף" || equalsFold(normalized, buttonUrgent) {
		return completeUrgent(next)
	}
	if normalized == "לא דחוף" || equalsFold(normalized, buttonNotUrgent) {
		return continueNotUrgent(next)
	}

	// Free-typed input: "urgent" wins unless a distinguishing negative marker
	// (one not itself containing "דחוף") is present.
	urgent := containsAny(text, urgentKeywords)
	notUrgent := containsAny(text, notUrgentKeywords) && !strings.Contains(text, "דחוף")
	switch {
	case urgent && !notUrgent:
		return completeUrgent(next)
	case notUrgent:
		return continueNotUrgent(next)
	}
	return Result{Next: next, Reply: promptUrgencyRetry, Buttons: urgencyButtons()}
}

func completeUrgent(next models.ConversationState) Result {
	urgent := true
	next.Data.IsUrgent = &urgent
	next.Stage = models.StageDone
	return Result{Next: next, Reply: promptEmergency, Complete: true}
}

func continueNotUrgent(next models.ConversationState) Result {
	urgent := false
	next.Data.IsUrgent = &urgent
	next.Stage = models.StageWaitingGeneralRequest
	return Result{Next: next, Reply: promptGeneralRequest}
}

func ticketsConfirmation(game string, amount int) string {
	return fmt.Sprintf("מצוין! עבור %s, %d כרטיסים.\n\nקישור לאתר: %s\n\nהסבר: תבחר את המשחק שאתה רוצה ולהבהיר שברגע שאחזור אליך תקבל קוד קופון.",
		game, amount, TicketSiteLink)
}

func packageSummary(d models.ConversationData) string {
	notes := ""
	if d.PackageNotes != nil {
		notes = *d.PackageNotes
	}
	return fmt.Sprintf("סיכום החבילה:\n• משחק/משחקים: %s\n• מספר אנשים: %s\n• טלפון: %s\n• דגשים: %s\n\nתודה! נחזור אליך בהקדם 💪",
		d.PackageGames, d.PackagePeople, d.PhoneNumber, notes)
}

// containsAny reports whether text contains any of the keywords,
// case-insensitively. Button ids and typed keywords share this path.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func equalsFold(text, keyword string) bool {
	return strings.EqualFold(text, keyword)
}

// digitsOnly strips every non-digit rune from s.
func digitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}
