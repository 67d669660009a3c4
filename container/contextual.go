package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	c.When("photo.controller").Needs("filesystem").Give(func(c *container.Container) any {
//	    return filesystem.NewS3(...)
//	})
type ContextualBuilder struct {
	state    *state
	consumer string
	needs    string
}

// Needs specifies which abstract the consumer depends on.
func (b *ContextualBuilder) Needs(abstract string) *ContextualBuilder {
	b.needs = abstract
	return b
}

// Give provides the factory used when the consumer resolves the specified
// abstract. Contextual results are built fresh on every resolution and never
// enter the shared-instance cache.
func (b *ContextualBuilder) Give(factory Factory) {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	if _, ok := b.state.contextual[b.consumer]; !ok {
		b.state.contextual[b.consumer] = make(map[string]Factory)
	}
	b.state.contextual[b.consumer][b.needs] = factory
}

// GiveValue is a shorthand for Give when the value is a simple scalar or
// pre-built instance (no factory logic needed).
//
//	c.When("photo.controller").Needs("storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(value any) {
	b.Give(func(_ *Container) any { return value })
}
