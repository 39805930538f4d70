package anthropic

// BuildCachedSystemBlocks returns the system prompt as a single block with
// an ephemeral cache breakpoint. The tagging instructions and key catalog do
// not change between forms, so consecutive forms within the TTL read the
// prefix from cache.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: ttl},
		},
	}
}
