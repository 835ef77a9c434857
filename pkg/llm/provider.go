// Интерфейс Провайдера через который работает всё приложение.

package llm

import "context"

// Provider: контракт для любого chat-completion сервиса.
type Provider interface {
	// Generate отправляет историю сообщений и возвращает ответ модели.
	//
	// opts может содержать []tools.ToolDefinition (Function Calling)
	// и GenerateOption для переопределения параметров модели.
	Generate(ctx context.Context, messages []Message, opts ...any) (Message, error)
}

// ProviderFunc позволяет использовать обычную функцию как Provider.
type ProviderFunc func(ctx context.Context, messages []Message, opts ...any) (Message, error)

// Generate реализует Provider.
func (f ProviderFunc) Generate(ctx context.Context, messages []Message, opts ...any) (Message, error) {
	return f(ctx, messages, opts...)
}
