package delivery

import "strings"

// DefaultChunkLimit matches the transport's hard per-message cap.
const DefaultChunkLimit = 4096

const fence = "```"

// Chunk splits text into pieces no longer than limit, breaking on line
// boundaries. Code fences are kept balanced: a chunk that would end
// inside a fence gets a closing fence, and the next chunk reopens it, so
// every piece renders as valid markdown on its own.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	if len(text) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	// Reserve room for a closing fence we might need to append.
	budget := limit - len(fence) - 1
	if budget < 1 {
		budget = 1
	}

	var chunks []string
	var cur strings.Builder
	inFence := false
	fenceHeader := ""

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		piece := strings.TrimRight(cur.String(), "\n")
		cur.Reset()
		if piece == "" {
			return
		}
		if inFence {
			piece += "\n" + fence
		}
		chunks = append(chunks, piece)
	}

	for _, line := range strings.Split(text, "\n") {
		for len(line) > budget {
			// A single overlong line gets hard-split.
			if cur.Len() > 0 {
				flush()
				if inFence {
					cur.WriteString(fenceHeader + "\n")
				}
			}
			cut := budget - cur.Len()
			cur.WriteString(line[:cut])
			line = line[cut:]
			flush()
			if inFence {
				cur.WriteString(fenceHeader + "\n")
			}
		}
		lineLen := len(line)
		if lineLen > 0 || cur.Len() > 0 {
			lineLen++ // trailing newline
		}
		if cur.Len()+lineLen > budget {
			flush()
			if inFence {
				cur.WriteString(fenceHeader + "\n")
			}
		}
		cur.WriteString(line)
		cur.WriteByte('\n')

		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			if inFence {
				inFence = false
				fenceHeader = ""
			} else {
				inFence = true
				fenceHeader = strings.TrimSpace(line)
			}
		}
	}
	flush()
	return chunks
}
