package usecase

// Index names travel comma-joined in the request path; curator keeps each
// request under this many bytes to stay clear of URL length limits.
const maxChunkBytes = 3072

func chunkNames(names []string, limit int) [][]string {
	var chunks [][]string
	var current []string
	size := 0

	for _, name := range names {
		add := len(name)
		if len(current) > 0 {
			add++
		}

		if len(current) > 0 && size+add > limit {
			chunks = append(chunks, current)
			current = nil
			size = 0
			add = len(name)
		}

		current = append(current, name)
		size += add
	}

	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
