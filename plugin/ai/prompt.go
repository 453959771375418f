package ai

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nbolat/course-site/plugin/ai/session"
)

const (
	systemPromptFile = "ai-system-prompt.txt"
	contextFile      = "ai-context.txt"

	// Terse fallbacks keep the assistant running when the prompt files
	// cannot be read.
	defaultSystemPrompt = "Отвечай кратко по предоставленному контексту."
	defaultContext      = "Информация о курсе временно недоступна."
)

// Prompts holds the two read-only configuration blobs loaded at startup:
// the system prompt and the course knowledge context.
type Prompts struct {
	System  string
	Context string
}

// LoadPrompts reads the prompt files from dir. On any read failure it
// returns the fallback defaults and the process continues degraded.
func LoadPrompts(dir string) Prompts {
	system, errSystem := os.ReadFile(filepath.Join(dir, systemPromptFile))
	context, errContext := os.ReadFile(filepath.Join(dir, contextFile))
	if errSystem != nil || errContext != nil {
		slog.Warn("prompt files unavailable, using fallback prompts",
			"dir", dir, "system_err", errSystem, "context_err", errContext)
		return Prompts{System: defaultSystemPrompt, Context: defaultContext}
	}

	slog.Info("system prompt and course context loaded", "dir", dir)
	return Prompts{
		System:  strings.TrimSpace(string(system)),
		Context: strings.TrimSpace(string(context)),
	}
}

// BuildPrompt linearizes the system prompt, the course context, a short
// dialog analysis block and the prior dialog into a single textual prompt.
// history is expected to end with the in-progress user message, which is
// excluded from the linearized dialog.
func (p Prompts) BuildPrompt(userMessage string, history []session.Message) string {
	var b strings.Builder

	b.WriteString(p.System)
	b.WriteString("\n\nКОНТЕКСТ КУРСА:\n")
	b.WriteString(p.Context)
	b.WriteString("\n\n")

	redirect := shouldRedirectToHuman(history)
	technical := isTechnicalQuestion(history)
	topics := discussedTopics(history)

	b.WriteString("АНАЛИЗ ДИАЛОГА:\n")
	fmt.Fprintf(&b, "- Тип вопроса: %s\n", boolWord(technical, "технический", "общий"))
	fmt.Fprintf(&b, "- Требует перенаправления: %s\n", boolWord(redirect, "ДА", "нет"))
	fmt.Fprintf(&b, "- Подробных вопросов: %s\n", boolWord(hasDetailedQuestions(history), "много", "мало"))
	fmt.Fprintf(&b, "- Пользователь готов: %s\n", boolWord(userExpressedReadiness(history), "да", "нет"))
	if len(topics) > 0 {
		fmt.Fprintf(&b, "- Обсуждаемые темы: %s\n\n", strings.Join(topics, ", "))
	} else {
		b.WriteString("- Обсуждаемые темы: еще не обсуждались\n\n")
	}

	if redirect {
		b.WriteString("ВАЖНО: Этот вопрос требует перенаправления к Нурболату.\n")
		b.WriteString("Дай общий ответ, но обязательно предложи личную консультацию.\n\n")
	}
	if technical {
		b.WriteString("Это технический вопрос - отвечай уверенно от первого лица.\n\n")
	}

	if prior := priorHistory(history); len(prior) > 0 {
		b.WriteString("ПРЕДЫДУЩИЙ ДИАЛОГ:\n")
		for _, msg := range prior {
			fmt.Fprintf(&b, "%s: %s\n", roleLabel(msg.Role), msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("ТЕКУЩИЙ ВОПРОС СТУДЕНТА: ")
	b.WriteString(userMessage)
	return b.String()
}

// priorHistory returns the history without the trailing in-progress user
// message.
func priorHistory(history []session.Message) []session.Message {
	if len(history) == 0 {
		return nil
	}
	return history[:len(history)-1]
}

func roleLabel(role string) string {
	if role == session.RoleUser {
		return "СТУДЕНТ"
	}
	return "НАСТАВНИК"
}

func boolWord(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

var redirectKeywords = []string{
	"бесплатно", "скидк", "акци", "цен", "стоим", "деньг", "оплат",
	"когда начать", "расписан", "дата", "время", "групп",
	"индивидуальн", "персональн", "личн", "моя ситуац",
	"гаранти", "обещай", "точно", "конкретно",
}

var technicalKeywords = []string{
	"язык", "python", "javascript", "typescript", "программ", "код",
	"модул", "урок", "задани", "проект", "технологи", "фреймворк",
	"обучен", "методик", "практик", "теори",
}

var detailedKeywords = []string{"подробн", "детал", "модул", "программ", "содержан", "изучат"}

var readinessKeywords = []string{"запис", "готов", "начат", "присоединит", "давайте"}

var topicKeywords = map[string][]string{
	"языки":           {"язык", "python", "javascript", "typescript", "js", "ts"},
	"стоимость":       {"стоим", "цена", "деньги", "тенге", "бесплатн"},
	"формат":          {"формат", "онлайн", "оффлайн", "заняти", "урок"},
	"программа":       {"программ", "модул", "обучен", "курс"},
	"ментор":          {"ментор", "преподаватель", "нұрболат"},
	"трудоустройство": {"работ", "ваканс", "трудоустройств", "карьер"},
}

// topicOrder keeps the analysis block deterministic across runs.
var topicOrder = []string{"языки", "стоимость", "формат", "программа", "ментор", "трудоустройство"}

func lastUserMessage(history []session.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			return strings.ToLower(history[i].Content)
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func anyUserMessageContains(history []session.Message, keywords []string) bool {
	for _, msg := range history {
		if msg.Role != session.RoleUser {
			continue
		}
		if containsAny(strings.ToLower(msg.Content), keywords) {
			return true
		}
	}
	return false
}

func shouldRedirectToHuman(history []session.Message) bool {
	return containsAny(lastUserMessage(history), redirectKeywords)
}

func isTechnicalQuestion(history []session.Message) bool {
	return containsAny(lastUserMessage(history), technicalKeywords)
}

func hasDetailedQuestions(history []session.Message) bool {
	return anyUserMessageContains(history, detailedKeywords)
}

func userExpressedReadiness(history []session.Message) bool {
	return anyUserMessageContains(history, readinessKeywords)
}

func discussedTopics(history []session.Message) []string {
	seen := map[string]bool{}
	for _, msg := range history {
		content := strings.ToLower(msg.Content)
		for topic, keywords := range topicKeywords {
			if containsAny(content, keywords) {
				seen[topic] = true
			}
		}
	}

	var topics []string
	for _, topic := range topicOrder {
		if seen[topic] {
			topics = append(topics, topic)
		}
	}
	return topics
}
