package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/raine/telegram-recycling-bot/internal/guide"
)

const (
	guideCallbackPrefix = "guide:"

	// Telegram rejects messages over 4096 characters.
	maxMessageRunes = 4000

	// Longest raw text shown for a single form value or guidance entry.
	maxValueRunes = 300
	maxEntryRunes = 600
)

// defaultAwaiting returns the field that plain text fills on a step when the
// user has not picked one explicitly.
func defaultAwaiting(step guide.Step) guide.Field {
	switch step {
	case guide.StepItem:
		return guide.FieldItemName
	case guide.StepMaterials:
		return guide.FieldMaterialsOther
	case guide.StepLocation:
		return guide.FieldUserLocation
	}
	return 0
}

// editableOn reports whether field can be picked for text input on step.
func editableOn(step guide.Step, field guide.Field) bool {
	switch field {
	case guide.FieldItemName:
		return step == guide.StepItem
	case guide.FieldMaterialsOther:
		return step == guide.StepMaterials
	case guide.FieldPlasticType, guide.FieldQuantity, guide.FieldSpecialFeatures:
		return step == guide.StepDetails
	case guide.FieldUserLocation:
		return step == guide.StepLocation
	}
	return false
}

func fieldLabel(f guide.Field) string {
	switch f {
	case guide.FieldItemName:
		return "Item"
	case guide.FieldMaterialsOther:
		return "Other material"
	case guide.FieldSize:
		return "Size"
	case guide.FieldCondition:
		return "Condition"
	case guide.FieldPlasticType:
		return "Plastic code"
	case guide.FieldQuantity:
		return "Quantity"
	case guide.FieldSpecialFeatures:
		return "Special features"
	case guide.FieldUserLocation:
		return "Location"
	}
	return f.String()
}

func valueOrNotSet(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return MsgGuideNotSet
	}
	return escapeMarkdown(truncateRunes(v, maxValueRunes))
}

// shortened returns a copy of d with long free-text values cut for display.
func shortened(d guide.ItemDescription) guide.ItemDescription {
	for _, f := range []guide.Field{
		guide.FieldItemName,
		guide.FieldMaterialsOther,
		guide.FieldPlasticType,
		guide.FieldQuantity,
		guide.FieldSpecialFeatures,
		guide.FieldUserLocation,
	} {
		d.Set(f, truncateRunes(d.Get(f), maxValueRunes))
	}
	return d
}

func callbackData(parts ...any) string {
	var sb strings.Builder
	sb.WriteString(guideCallbackPrefix)
	for i, p := range parts {
		if i > 0 {
			sb.WriteString(":")
		}
		fmt.Fprint(&sb, p)
	}
	return sb.String()
}

// renderView renders a frame of the workflow as message text and inline
// keyboard. The result view replaces the form once guidance arrives.
func renderView(v guide.View, awaiting guide.Field, cached bool) (string, tgbotapi.InlineKeyboardMarkup) {
	switch {
	case v.Guidance != nil:
		return renderResult(v, cached)
	case v.Loading:
		return renderLoading(v)
	default:
		return renderForm(v, awaiting)
	}
}

func renderForm(v guide.View, awaiting guide.Field) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, MsgGuideTitleFmt, int(v.Step), v.NumSteps, v.Step.String())
	sb.WriteString("\n\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	item := v.Item

	switch v.Step {
	case guide.StepItem:
		sb.WriteString(MsgGuideItemPrompt)
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "Item: %s", valueOrNotSet(item.ItemName))

	case guide.StepMaterials:
		sb.WriteString(MsgGuideMaterialsPrompt)
		sb.WriteString("\n\n")
		names := make([]string, len(item.Materials))
		for i, m := range item.Materials {
			names[i] = string(m)
		}
		fmt.Fprintf(&sb, "Materials: %s", valueOrNotSet(strings.Join(names, ", ")))
		if strings.TrimSpace(item.MaterialsOther) != "" {
			fmt.Fprintf(&sb, "\nOther: %s", escapeMarkdown(truncateRunes(strings.TrimSpace(item.MaterialsOther), maxValueRunes)))
		}

		var buttons []tgbotapi.InlineKeyboardButton
		for i, m := range guide.Materials {
			label := string(m)
			if item.HasMaterial(m) {
				label = BtnSelectedMark + label
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(label, callbackData("mat", i)))
		}
		rows = append(rows, chunkButtons(buttons, 2)...)

	case guide.StepDetails:
		sb.WriteString(MsgGuideDetailsPrompt)
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "Size: %s\n", valueOrNotSet(string(item.Size)))
		fmt.Fprintf(&sb, "Condition: %s\n", valueOrNotSet(string(item.Condition)))
		fmt.Fprintf(&sb, "Plastic code: %s\n", valueOrNotSet(item.PlasticType))
		fmt.Fprintf(&sb, "Quantity: %s\n", valueOrNotSet(item.Quantity))
		fmt.Fprintf(&sb, "Special features: %s", valueOrNotSet(item.SpecialFeatures))

		var sizes []tgbotapi.InlineKeyboardButton
		for i, s := range guide.Sizes {
			label := string(s)
			if item.Size == s {
				label = BtnSelectedMark + label
			}
			sizes = append(sizes, tgbotapi.NewInlineKeyboardButtonData(label, callbackData("size", i)))
		}
		rows = append(rows, chunkButtons(sizes, 2)...)

		var conditions []tgbotapi.InlineKeyboardButton
		for i, c := range guide.Conditions {
			label := string(c)
			if item.Condition == c {
				label = BtnSelectedMark + label
			}
			conditions = append(conditions, tgbotapi.NewInlineKeyboardButtonData(label, callbackData("cond", i)))
		}
		rows = append(rows, chunkButtons(conditions, 2)...)

		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(BtnPlasticType, callbackData("edit", int(guide.FieldPlasticType))),
				tgbotapi.NewInlineKeyboardButtonData(BtnQuantity, callbackData("edit", int(guide.FieldQuantity))),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(BtnFeatures, callbackData("edit", int(guide.FieldSpecialFeatures))),
			),
		)

	case guide.StepLocation:
		sb.WriteString(MsgGuideLocationPrompt)
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "Location: %s", valueOrNotSet(item.UserLocation))
		if desc := guide.BuildDescription(shortened(item)); desc != "" {
			sb.WriteString("\n\n")
			sb.WriteString(MsgGuideSummaryTitle)
			sb.WriteString("\n")
			sb.WriteString(escapeMarkdown(desc))
		}
	}

	if awaiting != 0 && awaiting != defaultAwaiting(v.Step) {
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, MsgGuideAwaitingFmt, fieldLabel(awaiting))
	}
	if v.Error != "" {
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, MsgGuideErrorFmt, escapeMarkdown(v.Error))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if v.CanBack {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(BtnBack, callbackData("back")))
	}
	if v.CanAdvance {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(BtnNext, callbackData("next")))
	}
	if v.CanSubmit {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(BtnSubmit, callbackData("submit")))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	if v.CanReset {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnStartOver, callbackData("reset")),
		))
	}

	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func renderLoading(v guide.View) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf(MsgGuideLoadingFmt, escapeMarkdown(truncateRunes(strings.TrimSpace(v.Item.ItemName), maxValueRunes)))
	return text, tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnStartOver, callbackData("reset")),
		),
	)
}

func renderResult(v guide.View, cached bool) (string, tgbotapi.InlineKeyboardMarkup) {
	g := v.Guidance
	a := g.Analysis

	title := strings.TrimSpace(a.ItemType)
	if title == "" {
		title = strings.TrimSpace(v.Item.ItemName)
	}

	var footer strings.Builder
	if v.Map != nil {
		footer.WriteString("\n\n")
		fmt.Fprintf(&footer, MsgGuideMapNote, escapeMarkdown(truncateRunes(v.Map.Location, maxValueRunes)))
	}
	if cached {
		footer.WriteString("\n\n")
		footer.WriteString(MsgGuideCachedNote)
	}

	b := newBlockBuilder(maxMessageRunes - utf8.RuneCountInString(footer.String()))
	b.add(fmt.Sprintf(MsgGuideResultTitleFmt, escapeMarkdown(truncateRunes(title, maxValueRunes))) +
		"\n" + guide.RecyclabilityLabel(a.Recyclability))
	b.add("\n\n" + escapeMarkdown(truncateRunes(strings.TrimSpace(a.Summary), maxEntryRunes)))
	if len(a.PrimaryMaterials) > 0 {
		materials := truncateRunes(strings.Join(a.PrimaryMaterials, ", "), maxEntryRunes)
		b.add("\n\n*Materials:* " + escapeMarkdown(materials))
	}
	if m := strings.TrimSpace(g.DisposalMethod); m != "" {
		b.add("\n\n" + fmt.Sprintf(MsgGuideWhereItGoes, escapeMarkdown(truncateRunes(m, maxEntryRunes))))
	}

	writeSection(b, "Preparation", g.Preparation, func(int) string { return "• " })
	writeSection(b, "Instructions", g.Instructions, func(i int) string { return fmt.Sprintf("%d. ", i+1) })
	writeSection(b, "Warnings", g.Warnings, func(int) string { return "⚠️ " })
	writeSection(b, "Tips", g.Tips, func(int) string { return "💡 " })

	var rows [][]tgbotapi.InlineKeyboardButton
	if v.Map != nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(BtnMap, v.Map.SearchURL()),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(BtnStartOver, callbackData("reset")),
	))

	return b.String() + footer.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// writeSection adds a titled list. The title travels with the first entry so
// a section is never left without items.
func writeSection(b *blockBuilder, title string, items []string, bullet func(int) string) {
	n := 0
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		block := "\n" + bullet(n) + escapeMarkdown(truncateRunes(it, maxEntryRunes))
		if n == 0 {
			block = "\n\n*" + title + "*" + block
		}
		b.add(block)
		n++
	}
}

// blockBuilder collects complete Markdown blocks up to a rune budget. Raw
// text is shortened before it is escaped and wrapped, so dropping whole blocks
// never splits an entity or an escape sequence.
type blockBuilder struct {
	sb     strings.Builder
	budget int
	full   bool
}

func newBlockBuilder(limit int) *blockBuilder {
	return &blockBuilder{budget: limit - utf8.RuneCountInString(truncatedMark)}
}

const truncatedMark = "\n…"

func (b *blockBuilder) add(block string) {
	if b.full {
		return
	}
	n := utf8.RuneCountInString(block)
	if n > b.budget {
		b.full = true
		b.sb.WriteString(truncatedMark)
		return
	}
	b.sb.WriteString(block)
	b.budget -= n
}

func (b *blockBuilder) String() string {
	return b.sb.String()
}

func chunkButtons(buttons []tgbotapi.InlineKeyboardButton, size int) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(buttons); i += size {
		end := min(i+size, len(buttons))
		rows = append(rows, buttons[i:end])
	}
	return rows
}
