package anthropic

// BuildCachedSystemBlocks constructs system content blocks with a cache
// breakpoint. The reconciliation system prompt is identical on every call,
// so marking it cacheable lets repeated analyses reuse the prefix.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: ttl,
			},
		},
	}
}
