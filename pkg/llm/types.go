// Базовые типы - универсальный язык общения с моделями.
package llm

// Role: роль автора сообщения в истории чата.
type Role string

// Роли сообщений, совместимые с Chat Completions API.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message: одно сообщение диалога.
type Message struct {
	Role    Role
	Content string

	// Images: data-uri или http ссылки на картинки (Vision запрос).
	Images []string

	// ToolCalls заполняется, когда модель решила вызвать инструменты.
	ToolCalls []ToolCall

	// ToolCallID связывает ответ инструмента (RoleTool) с вызовом.
	ToolCallID string
}

// ToolCall: запрос модели на вызов инструмента.
type ToolCall struct {
	ID   string
	Name string
	Args string // сырой JSON аргументов
}

// HasToolCalls сообщает, ждёт ли модель выполнения инструментов.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// NewUserMessage собирает текстовое сообщение пользователя.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewSystemMessage собирает системное сообщение.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}
