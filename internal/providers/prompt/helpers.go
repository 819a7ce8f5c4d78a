package prompt

import (
	"fmt"
	"strings"

	"portraitbot/internal/domain"
)

const rewriteSystemPrompt = "Ты — эксперт по созданию изображений. Преобразуй запрос на русском языке в ПРОМПТ на английском для FLUX, включив: "

func buildRewritePayload(request string) string {
	sb := &strings.Builder{}
	sb.WriteString("1. Акцент на лице пользователя («user’s face», «distinct facial features»).\n")
	sb.WriteString("2. Детали: стиль, освещение, фон, атмосфера.\n")
	sb.WriteString("3. Указания по стилю из запроса пользователя.\n")
	fmt.Fprintf(sb, "4. Ключевое слово %s в конце.\n\n", domain.TriggerToken)
	sb.WriteString("Пример:\n")
	fmt.Fprintf(sb, "«Vibrant scene with detailed lighting. Highlight user’s face and distinct features. Match requested style. %s»\n\n", domain.TriggerToken)
	fmt.Fprintf(sb, "Обработай запрос: «%s»", request)
	return sb.String()
}

// cleanRewrite strips fences and quoting the model sometimes wraps around
// the answer and guarantees a single trailing trigger token.
func cleanRewrite(raw string) string {
	text := trimCodeFence(raw)
	text = strings.Trim(text, " \t\r\n\"'«»")
	if text == "" {
		return ""
	}
	if strings.Contains(text, domain.TriggerToken) {
		return text
	}
	return text + " " + domain.TriggerToken
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```text")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
