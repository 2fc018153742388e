// Package intent classifies free-text commands into robot actions using a
// small keyword table. It deliberately avoids any model dependency so the
// core can act on commands even when no language model is reachable.
package intent

import "strings"

// Type is the broad category of a parsed command.
type Type string

const (
	TypeMovement    Type = "movement"
	TypeExploration Type = "exploration"
	TypeSeek        Type = "seek"
	TypeSpeech      Type = "speech"
)

// Direction for movement intents.
type Direction string

const (
	DirForward  Direction = "forward"
	DirBackward Direction = "backward"
	DirLeft     Direction = "left"
	DirRight    Direction = "right"
)

// Intent is the result of parsing one command.
type Intent struct {
	Type      Type
	Direction Direction // movement only
	Target    string    // seek only
	Command   string    // original text
}

var (
	movementWords    = []string{"move", "go", "turn", "navigate"}
	explorationWords = []string{"explore", "search", "patrol"}
	seekWords        = []string{"find", "locate", "seek"}
	visionWords      = []string{"see", "look", "what", "where", "identify", "find", "describe"}
)

// Parse classifies a command. Movement wins over seek, seek over
// exploration; anything else falls through to speech. A seek keyword
// without a target object falls through too, so a bare "find" still gets
// the vision answer path.
func Parse(command string) Intent {
	lower := strings.ToLower(command)

	if containsAny(lower, movementWords) {
		return Intent{
			Type:      TypeMovement,
			Direction: extractDirection(lower),
			Command:   command,
		}
	}
	if target := extractTarget(lower); target != "" {
		return Intent{Type: TypeSeek, Target: target, Command: command}
	}
	if containsAny(lower, explorationWords) {
		return Intent{Type: TypeExploration, Command: command}
	}
	return Intent{Type: TypeSpeech, Command: command}
}

// NeedsVision reports whether answering the command requires a scene
// analysis first.
func NeedsVision(command string) bool {
	return containsAny(strings.ToLower(command), visionWords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// extractTarget returns the object named after a seek keyword, with
// leading articles stripped ("find the red ball" yields "red ball").
func extractTarget(lower string) string {
	fields := strings.Fields(lower)
	for i, f := range fields {
		f = strings.Trim(f, ".,!?")
		for _, w := range seekWords {
			if f != w {
				continue
			}
			rest := fields[i+1:]
			for len(rest) > 0 && isFiller(strings.Trim(rest[0], ".,!?")) {
				rest = rest[1:]
			}
			if len(rest) == 0 {
				return ""
			}
			return strings.Trim(strings.Join(rest, " "), ".,!?")
		}
	}
	return ""
}

func isFiller(word string) bool {
	switch word {
	case "the", "a", "an", "my", "for", "me":
		return true
	}
	return false
}

func extractDirection(lower string) Direction {
	switch {
	case strings.Contains(lower, "forward") || strings.Contains(lower, "ahead"):
		return DirForward
	case strings.Contains(lower, "backward") || strings.Contains(lower, "back"):
		return DirBackward
	case strings.Contains(lower, "left"):
		return DirLeft
	case strings.Contains(lower, "right"):
		return DirRight
	default:
		return DirForward
	}
}
