package intent

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		command string
		typ     Type
		dir     Direction
	}{
		{"move forward please", TypeMovement, DirForward},
		{"go back a bit", TypeMovement, DirBackward},
		{"turn left now", TypeMovement, DirLeft},
		{"navigate to the right", TypeMovement, DirRight},
		{"Move straight ahead", TypeMovement, DirForward},
		{"turn around", TypeMovement, DirForward}, // no direction word, default
		{"explore the room", TypeExploration, ""},
		{"search for the ball", TypeExploration, ""},
		{"start a patrol", TypeExploration, ""},
		{"hello robot", TypeSpeech, ""},
		{"tell me a joke", TypeSpeech, ""},
	}

	for _, tc := range cases {
		got := Parse(tc.command)
		if got.Type != tc.typ {
			t.Errorf("Parse(%q).Type = %s, want %s", tc.command, got.Type, tc.typ)
		}
		if tc.typ == TypeMovement && got.Direction != tc.dir {
			t.Errorf("Parse(%q).Direction = %s, want %s", tc.command, got.Direction, tc.dir)
		}
		if got.Command != tc.command {
			t.Errorf("Parse(%q) lost original command: %q", tc.command, got.Command)
		}
	}
}

func TestMovementWinsOverExploration(t *testing.T) {
	// "go explore" matches both tables; movement is checked first.
	got := Parse("go explore the hallway")
	if got.Type != TypeMovement {
		t.Fatalf("type = %s, want %s", got.Type, TypeMovement)
	}
}

func TestParseSeekTarget(t *testing.T) {
	cases := []struct {
		command string
		typ     Type
		target  string
	}{
		{"find the oscilloscope", TypeSeek, "oscilloscope"},
		{"Locate my multimeter", TypeSeek, "multimeter"},
		{"find the red ball", TypeSeek, "red ball"},
		{"seek the exit", TypeSeek, "exit"},
		// A seek word with no object falls through to speech.
		{"find", TypeSpeech, ""},
		{"locate", TypeSpeech, ""},
		// Movement still wins when both tables match.
		{"go find the lamp", TypeMovement, ""},
	}

	for _, tc := range cases {
		got := Parse(tc.command)
		if got.Type != tc.typ {
			t.Errorf("Parse(%q).Type = %s, want %s", tc.command, got.Type, tc.typ)
		}
		if got.Target != tc.target {
			t.Errorf("Parse(%q).Target = %q, want %q", tc.command, got.Target, tc.target)
		}
	}
}

func TestNeedsVision(t *testing.T) {
	cases := []struct {
		command string
		want    bool
	}{
		{"what do you see", true},
		{"look around", true},
		{"find my keys", true},
		{"describe the room", true},
		{"move forward", false},
		{"hello there", false},
	}
	for _, tc := range cases {
		if got := NeedsVision(tc.command); got != tc.want {
			t.Errorf("NeedsVision(%q) = %v, want %v", tc.command, got, tc.want)
		}
	}
}
