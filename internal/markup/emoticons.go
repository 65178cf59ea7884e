package markup

// emoticonTokens maps wiki emoticon names to short textual tokens.
// Unknown names map to the empty string and disappear from the output.
var emoticonTokens = map[string]string{
	"smile":           "😄",
	"sad":             "🙁",
	"cheeky":          "😛",
	"laugh":           "😆",
	"wink":            "😉",
	"thumbs-up":       "👍",
	"thumbs-down":     "👎",
	"information":     "ℹ️",
	"tick":            "✅",
	"cross":           "❌",
	"warning":         "⚠️",
	"plus":            "➕",
	"minus":           "➖",
	"question":        "❓",
	"light-on":        "💡",
	"light-off":       "💡",
	"yellow-star":     "⭐",
	"red-star":        "⭐",
	"green-star":      "⭐",
	"blue-star":       "⭐",
	"heart":           "❤️",
	"broken-heart":    "💔",
}

func emoticonToken(name string) string {
	return emoticonTokens[name]
}
