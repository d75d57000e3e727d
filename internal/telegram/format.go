package telegram

import (
	"fmt"
	"strings"

	"smoothie-orders/internal/form"
	"smoothie-orders/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data is "action|payload" and must stay under Telegram's 64 byte limit.
const (
	actionToggle    = "t"
	actionSubmit    = "s"
	actionNutrition = "n"
	actionReset     = "r"
	actionRefresh   = "v"
)

const maxCallbackData = 64

var bannerIcons = map[form.BannerKind]string{
	form.BannerInfo:    "ℹ️ ",
	form.BannerWarning: "⚠️ ",
	form.BannerError:   "❌ ",
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// code makes s safe inside a Markdown pre block. Legacy Markdown has no escapes
// inside entities, so a backtick would close the block early.
func code(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

func formatViewMarkdown(v *form.View) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s*\n%s\n\n", v.Title, v.Intro))

	if v.Name != "" {
		sb.WriteString(fmt.Sprintf("*Name:* %s\n", escape(v.Name)))
	} else {
		sb.WriteString("*Name:* _send your name as a message_\n")
	}
	sb.WriteString(fmt.Sprintf("*Ingredients (%d/%d):* ", len(v.Selected), v.MaxSelections))
	if len(v.Selected) == 0 {
		sb.WriteString("_none yet_\n")
	} else {
		sb.WriteString(escape(strings.Join(v.Selected, ", ")) + "\n")
	}

	if len(v.Banners) > 0 {
		sb.WriteString("\n")
		for _, b := range v.Banners {
			sb.WriteString(bannerIcons[b.Kind] + escape(b.Text) + "\n")
		}
	}

	for _, table := range v.Nutrition {
		sb.WriteString(fmt.Sprintf("\n🍎 *%s* (%s)\n```\n", escape(table.Fruit), escape(table.Key)))
		width := 0
		for _, row := range table.Rows {
			if len(row.Field) > width {
				width = len(row.Field)
			}
		}
		for _, row := range table.Rows {
			sb.WriteString(fmt.Sprintf("%-*s  %s\n", width, code(row.Field), code(row.Value)))
		}
		sb.WriteString("```\n")
	}

	if v.Statement != "" {
		sb.WriteString(fmt.Sprintf("\n```\n%s\n```\n", code(v.Statement)))
	}
	return sb.String()
}

func buildKeyboard(v *form.View) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if v.Halted {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Retry", actionRefresh+"|"),
		))
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, opt := range v.Options {
		data := actionToggle + "|" + opt.Name
		if len(data) > maxCallbackData {
			continue
		}
		label := opt.Name
		if opt.Selected {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	nutritionLabel := "🍎 Show Nutrition"
	if v.ShowNutrition {
		nutritionLabel = "🙈 Hide Nutrition"
	}
	controls := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(nutritionLabel, actionNutrition+"|"),
		tgbotapi.NewInlineKeyboardButtonData("🔄 Reset", actionReset+"|"),
	)
	if v.CanSubmit {
		controls = append([]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🥤 Submit Order", actionSubmit+"|"),
		}, controls...)
	}
	rows = append(rows, controls)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Nutrition Lookups*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d lookups, %d failed, avg %dms\n", d.Date, d.TotalLookups, d.TotalFailures, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataSize))
	return sb.String()
}
