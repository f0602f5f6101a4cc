package dialog

import "github.com/arenaleads/leadpipe/internal/models"

// Prompt strings for every dialogue stage. The dialogue runs in Hebrew; the
// strings are fixed and are matched verbatim by the intake tests.
const (
	promptOrderType          = "הזמנה קיימת או הזמנה חדשה?"
	promptOrderTypeRetry     = "תכתוב 'הזמנה קיימת' או 'הזמנה חדשה', או לחץ על אחד הכפתורים"
	promptPackageOrTickets   = "חבילה או כרטיסים?"
	promptPackageRetry       = "תכתוב 'חבילה' או 'כרטיסים', או לחץ על אחד הכפתורים"
	promptTicketsGame        = "עבור איזה משחק וכמה כרטיסים?"
	promptTicketsAmount      = "כמה כרטיסים?"
	promptTicketsAmountRetry = "תכתוב מספר כרטיסים (למשל: 2)"
	promptPackageDetails     = "אני צריך את הפרטים הבאים:\n• שם המשחק/משחקים\n• מספר אנשים\n• מספר טלפון\n• דגשים והעדפות\n\nתתחיל עם שם המשחק/משחקים:"
	promptPackagePeople      = "כמה אנשים?"
	promptPackagePhone       = "מה מספר הטלפון?"
	promptPackagePhoneRetry  = "מספר לא תקין, תנסה שוב"
	promptPackageNotes       = "יש דגשים או העדפות? (אם לא, כתוב 'אין')"
	promptUrgency            = "דחוף או לא דחוף?"
	promptUrgencyRetry       = "תכתוב 'דחוף' או 'לא דחוף', או לחץ על אחד הכפתורים"
	promptGeneralRequest     = "תשאיר כאן את הבקשה ופרטים, נחזור אליך בהקדם"
	promptGeneralThanks      = "תודה! קיבלנו את הפרטים שלך, נחזור אליך בהקדם 👍"
	promptAnythingElse       = "צריך משהו נוסף? תכתוב לי 🙂"
	promptRestarted          = "התחלתי מחדש את התהליך 🙂"
	promptEmergency          = "מספר טלפון חירום: 0535515522"
)

// TicketSiteLink is the fixed referral link included in ticket confirmations.
const TicketSiteLink = "https://arenatickets.co.il/ref/2/"

// noNotesKeyword maps to an empty notes field when entered at the notes slot.
const noNotesKeyword = "אין"

// Button ids double as accepted text input, so they stay stable.
const (
	buttonNewOrder      = "new_order"
	buttonExistingOrder = "existing_order"
	buttonTickets       = "tickets"
	buttonPackage       = "package"
	buttonUrgent        = "urgent"
	buttonNotUrgent     = "not_urgent"
)

func orderTypeButtons() []models.Button {
	return []models.Button{
		{ID: buttonNewOrder, Label: "הזמנה חדשה"},
		{ID: buttonExistingOrder, Label: "הזמנה קיימת"},
	}
}

func packageOrTicketsButtons() []models.Button {
	return []models.Button{
		{ID: buttonTickets, Label: "כרטיסים"},
		{ID: buttonPackage, Label: "חבילה"},
	}
}

func urgencyButtons() []models.Button {
	return []models.Button{
		{ID: buttonUrgent, Label: "דחוף"},
		{ID: buttonNotUrgent, Label: "לא דחוף"},
	}
}

// Keyword sets for free-typed input, matched as case-insensitive substrings.
var (
	newOrderKeywords      = []string{"הזמנה חדשה", "חדשה", "הזמנה חדש", buttonNewOrder}
	existingOrderKeywords = []string{"הזמנה קיימת", "קיימת", "הזמנה קיים", buttonExistingOrder}
	ticketsKeywords       = []string{"כרטיסים", "כרטיס"}
	packageKeywords       = []string{"חבילה", "חבילות"}
	urgentKeywords        = []string{"דחוף", "דחוף מאוד", "חירום"}
	notUrgentKeywords     = []string{"לא דחוף", "יכול לחכות", "רגיל", "לא"}
)
