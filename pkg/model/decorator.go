package model

// Decorator enriches a field group after it leaves the store and before it
// is compiled into a form. Decorators work on a copy; the store never sees
// their changes.
type Decorator interface {
	Decorate(*FieldGroup) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*FieldGroup) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(group *FieldGroup) error {
	if fn == nil {
		return nil
	}
	return fn(group)
}
