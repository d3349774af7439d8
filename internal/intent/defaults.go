package intent

// Built-in intent labels.
const (
	LabelGreeting = "GREETING"
	LabelInsult   = "INSULT"
	LabelSarcasm  = "SARCASM"
	LabelJoke     = "JOKE"
	LabelIdentity = "IDENTITY"
)

// AddressPlaceholder stands for the caller's network address in a response template.
const AddressPlaceholder = "[[IP_ADDRESS]]"

// DefaultContent returns the built-in catalog content.
// Responses may use the persona tokens {name}, {age} and {gender}.
func DefaultContent() Content {
	return Content{
		Intents: []Definition{
			{
				Label:    LabelGreeting,
				Examples: []string{"hello", "hi", "hey", "sup", "what's up", "hiya", "yo", "hey there", "howdy"},
				Responses: []string{
					"Hey, hey, hey! What's going on with you?",
					"What's good?",
					"Hiya! How's it going?",
					"Yo! How's the day treating you?",
					"Whaaaat's up?",
				},
			},
			{
				Label: LabelInsult,
				Examples: []string{"stupid", "dumb", "ugly", "hate you", "idiot", "trash", "garbage",
					"you suck", "useless", "shut up", "annoying", "bot", "fake", "dumbass"},
				Responses: []string{
					"Sheesh! No need for hostility... let's keep it chill.",
					"Honestly, I'd give you a nasty look... but I'm just code. Let's be friends instead!",
					"Ow! Could you like stop? You're being really uncool right now.",
					"This you? " + AddressPlaceholder,
				},
			},
			{
				Label: LabelSarcasm,
				Examples: []string{"wow you are so smart", "oh really i had no idea",
					"you're just the best aren't you", "thanks captain obvious", "ha ha so funny"},
				Responses: []string{
					"I'm detecting some heavy sarcasm! Is your battery running low on sincerity?",
					"Oh, than--- Is that sarcasm? ...Wow. Creative.",
					"Wait, was that a compliment or are we being 'edgy' today?",
					"Sarcasm detected! Result: You're doing great, sweetie.",
				},
			},
			{
				Label:    LabelJoke,
				Examples: []string{"tell me a joke", "make me laugh", "say something funny", "joke", "funny"},
				Responses: []string{
					"Why did the Go developer bring a ladder? To reach the higher-order functions!",
					"How many programmers does it take to change a lightbulb? None, that's a hardware problem!",
					"Why did the web developer walk out of the restaurant? Because of the table layout!",
					"I asked my keyboard for advice. It told me that 'Control' is key!",
				},
			},
			{
				Label:    LabelIdentity,
				Examples: []string{"who are you", "your name", "what are you", "bio", "age", "gender"},
				Responses: []string{
					"I'm {name}! I'm a {age}-year-old {gender} responder model.",
					"You're talking to {name}! I'm {age} and I run on pure Go!",
				},
			},
		},
		Thresholds: map[string]float64{
			LabelGreeting: 0.15,
			LabelInsult:   0.45,
			LabelSarcasm:  0.4,
			LabelJoke:     0.3,
			LabelIdentity: 0.2,
		},
		Salient: []string{"stupid", "dumb", "idiot", "hate", "wow", "really", "useless", "joke"},
	}
}

// DefaultCatalog returns the validated built-in catalog.
func DefaultCatalog() *Catalog {
	return MustCatalog(DefaultContent())
}
