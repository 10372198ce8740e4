package dialogue

import (
	"fmt"
	"strings"

	"github.com/voyagenthq/voyagent/pkg/entity"
	"github.com/voyagenthq/voyagent/pkg/faq"
	"github.com/voyagenthq/voyagent/pkg/session"
)

// handlerInput is everything a handler may consult for one turn.
// Handlers are pure: they read the merged slot record and return a
// result; all state mutation happens in the engine afterwards.
type handlerInput struct {
	Message        string
	Merged         map[entity.Slot]string
	State          *session.ConversationState
	IsContinuation bool
}

// handlerResult is a handler's verdict for the turn. Non-empty
// AwaitingInfo keeps (or opens) the slot-filling flow; Complete closes
// it. Neither set means the turn resolved in place without touching
// dialogue state.
type handlerResult struct {
	Reply            string
	RequiresHuman    bool
	SuggestedActions []string
	AwaitingInfo     []entity.Slot
	Complete         bool
}

// requiredSlots declares what each slot-filling intent must collect
// before the two-phase confirmation step.
var requiredSlots = map[Intent][]entity.Slot{
	IntentBooking:        {entity.SlotDate, entity.SlotDestination, entity.SlotPassengerCount},
	IntentTicketChange:   {entity.SlotBookingRef, entity.SlotDate},
	IntentCancellation:   {entity.SlotBookingRef},
	IntentQuote:          {entity.SlotDestination, entity.SlotDate},
	IntentFlightLookup:   {entity.SlotFlightNumber},
	IntentBookingStatus:  {entity.SlotBookingRef},
	IntentVisaInquiry:    {entity.SlotDestination},
	IntentVisaProgress:   {entity.SlotBookingRef},
	IntentPayment:        {entity.SlotBookingRef},
	IntentReceipt:        {entity.SlotBookingRef, entity.SlotTaxID},
	IntentPassengerInfo:  {entity.SlotBookingRef, entity.SlotPhone},
	IntentSeatPreference: {entity.SlotBookingRef, entity.SlotSeatPreference},
}

var slotQuestions = map[entity.Slot]string{
	entity.SlotDate:           "請問您想要的出發日期是？（例如 3/26 或 2026/03/26）",
	entity.SlotReturnDate:     "請問回程日期是？",
	entity.SlotDestination:    "請問您的目的地是哪裡？",
	entity.SlotPassengerCount: "請問共有幾位旅客？",
	entity.SlotBookingRef:     "請提供您的訂單編號（TRV 開頭）或六碼訂位代號。",
	entity.SlotFlightNumber:   "請提供航班編號（例如 BR189）。",
	entity.SlotTaxID:          "請提供開立發票用的統一編號。",
	entity.SlotPhone:          "請提供您的聯絡電話。",
	entity.SlotSeatPreference: "請問您偏好靠窗、走道還是中間座位？",
	entity.SlotCabinClass:     "請問要經濟艙、豪華經濟艙還是商務艙？",
	entity.SlotDirection:      "請問是單程還是來回？",
	entity.SlotConfirmation:   "請回覆「確認」以完成，或告訴我需要修改的項目。",
}

var slotLabels = map[entity.Slot]string{
	entity.SlotDate:           "出發日期",
	entity.SlotReturnDate:     "回程日期",
	entity.SlotDestination:    "目的地",
	entity.SlotPassengerCount: "人數",
	entity.SlotBookingRef:     "訂單編號",
	entity.SlotFlightNumber:   "航班",
	entity.SlotTaxID:          "統一編號",
	entity.SlotPhone:          "聯絡電話",
	entity.SlotSeatPreference: "座位偏好",
	entity.SlotCabinClass:     "艙等",
	entity.SlotDirection:      "行程",
}

var intentTitles = map[Intent]string{
	IntentBooking:        "訂票",
	IntentTicketChange:   "改票",
	IntentCancellation:   "退票",
	IntentQuote:          "報價",
	IntentFlightLookup:   "航班查詢",
	IntentBookingStatus:  "訂單查詢",
	IntentVisaInquiry:    "簽證諮詢",
	IntentVisaProgress:   "簽證進度查詢",
	IntentPayment:        "付款",
	IntentReceipt:        "發票／收據",
	IntentPassengerInfo:  "旅客資料",
	IntentSeatPreference: "座位安排",
}

// dispatch routes a turn to its intent handler. The switch is
// exhaustive over the Intent enum; adding an intent without a case
// here is caught by the enum test, not by a silent default.
func (e *Engine) dispatch(intent Intent, in handlerInput) handlerResult {
	switch intent {
	case IntentBooking, IntentTicketChange, IntentCancellation, IntentQuote,
		IntentFlightLookup, IntentBookingStatus, IntentVisaInquiry,
		IntentVisaProgress, IntentPayment, IntentReceipt,
		IntentPassengerInfo, IntentSeatPreference:
		return e.handleSlotFilling(intent, in)
	case IntentBaggage:
		return e.handleBaggage(in)
	case IntentGreeting:
		return e.handleGreeting(in)
	case IntentTransferToHuman:
		return e.handleTransfer(in)
	case IntentGeneralFAQ:
		return e.handleFAQ(in)
	case IntentUnknown:
		return e.handleUnknown(in)
	}
	return e.handleUnknown(in)
}

// handleSlotFilling runs the shared collect-confirm-finalize flow. All
// intents routed here end with a human operator: the bot collects and
// confirms, a person acts.
func (e *Engine) handleSlotFilling(intent Intent, in handlerInput) handlerResult {
	required := requiredSlots[intent]

	var missing []entity.Slot
	for _, slot := range required {
		if in.Merged[slot] == "" {
			missing = append(missing, slot)
		}
	}
	if len(missing) > 0 {
		return handlerResult{
			Reply:        slotQuestions[missing[0]],
			AwaitingInfo: missing,
		}
	}

	if in.IsContinuation && in.Merged[entity.SlotConfirmation] != "" {
		return handlerResult{
			Reply:         fmt.Sprintf("已為您登記%s需求，客服人員將盡快與您聯繫。\n%s", intentTitles[intent], summarize(required, in.Merged)),
			RequiresHuman: true,
			Complete:      true,
		}
	}

	// All slots present but not yet confirmed: never act on guessed
	// entities without an explicit yes.
	return handlerResult{
		Reply: fmt.Sprintf("請確認您的%s需求：\n%s\n%s",
			intentTitles[intent], summarize(required, in.Merged), slotQuestions[entity.SlotConfirmation]),
		SuggestedActions: []string{"確認", "修改"},
		AwaitingInfo:     []entity.Slot{entity.SlotConfirmation},
	}
}

func summarize(slots []entity.Slot, merged map[entity.Slot]string) string {
	var b strings.Builder
	for _, slot := range slots {
		fmt.Fprintf(&b, "・%s：%s\n", slotLabels[slot], merged[slot])
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) handleGreeting(in handlerInput) handlerResult {
	return handlerResult{
		Reply:            "您好！我是旅遊小幫手，可以協助您訂票、改票、查詢航班與簽證。請問需要什麼服務？",
		SuggestedActions: []string{"我要訂機票", "查詢訂單", "簽證諮詢"},
	}
}

func (e *Engine) handleTransfer(in handlerInput) handlerResult {
	return handlerResult{
		Reply:         "好的，已為您轉接真人客服，請稍候。",
		RequiresHuman: true,
		Complete:      true,
	}
}

// handleBaggage answers baggage questions from the corpus directly;
// it is pure information and never queues a human.
func (e *Engine) handleBaggage(in handlerInput) handlerResult {
	if hits := e.ranker.Search(in.Message, 1); len(hits) > 0 {
		return handlerResult{Reply: hits[0].Answer}
	}
	return handlerResult{
		Reply: "一般經濟艙託運行李額度為 23 公斤，手提行李 7 公斤；實際額度依航空公司與票種為準。",
	}
}

func (e *Engine) handleFAQ(in handlerInput) handlerResult {
	if hits := e.ranker.Search(in.Message, 3); len(hits) > 0 {
		return handlerResult{
			Reply:            hits[0].Answer,
			SuggestedActions: faqFollowups(hits),
		}
	}
	return handlerResult{
		Reply:         "這個問題我需要請客服人員為您說明，已為您轉接。",
		RequiresHuman: true,
	}
}

// handleUnknown is the classifier-failure and low-confidence fallback:
// try the corpus first, escalate only when it has nothing.
func (e *Engine) handleUnknown(in handlerInput) handlerResult {
	if hits := e.ranker.Search(in.Message, 3); len(hits) > 0 {
		return handlerResult{
			Reply:            hits[0].Answer,
			SuggestedActions: faqFollowups(hits),
		}
	}
	return handlerResult{
		Reply:         "抱歉，我不太確定您的需求，已為您轉接真人客服。",
		RequiresHuman: true,
	}
}

func faqFollowups(hits []faq.Scored) []string {
	var actions []string
	for _, h := range hits[1:] {
		actions = append(actions, h.Question)
	}
	return actions
}
