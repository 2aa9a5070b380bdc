package language

import "fmt"

// Language is one whisper transcription language.
type Language struct {
	Code       string // ISO 639-1
	Name       string
	NativeName string
}

// Auto lets the engine detect the language. Config files spell it "auto" or leave it empty.
var Auto = Language{Code: "auto", Name: "Auto-detect"}

var languages = []Language{
	{"af", "Afrikaans", "Afrikaans"},
	{"ar", "Arabic", "العربية"},
	{"hy", "Armenian", "Հայերեն"},
	{"az", "Azerbaijani", "Azərbaycan"},
	{"be", "Belarusian", "Беларуская"},
	{"bs", "Bosnian", "Bosanski"},
	{"bg", "Bulgarian", "Български"},
	{"ca", "Catalan", "Català"},
	{"zh", "Chinese", "中文"},
	{"hr", "Croatian", "Hrvatski"},
	{"cs", "Czech", "Čeština"},
	{"da", "Danish", "Dansk"},
	{"nl", "Dutch", "Nederlands"},
	{"en", "English", "English"},
	{"et", "Estonian", "Eesti"},
	{"fi", "Finnish", "Suomi"},
	{"fr", "French", "Français"},
	{"gl", "Galician", "Galego"},
	{"de", "German", "Deutsch"},
	{"el", "Greek", "Ελληνικά"},
	{"he", "Hebrew", "עברית"},
	{"hi", "Hindi", "हिन्दी"},
	{"hu", "Hungarian", "Magyar"},
	{"is", "Icelandic", "Íslenska"},
	{"id", "Indonesian", "Bahasa Indonesia"},
	{"it", "Italian", "Italiano"},
	{"ja", "Japanese", "日本語"},
	{"kn", "Kannada", "ಕನ್ನಡ"},
	{"kk", "Kazakh", "Қазақ"},
	{"ko", "Korean", "한국어"},
	{"lv", "Latvian", "Latviešu"},
	{"lt", "Lithuanian", "Lietuvių"},
	{"mk", "Macedonian", "Македонски"},
	{"ms", "Malay", "Bahasa Melayu"},
	{"mr", "Marathi", "मराठी"},
	{"mi", "Maori", "Māori"},
	{"ne", "Nepali", "नेपाली"},
	{"no", "Norwegian", "Norsk"},
	{"fa", "Persian", "فارسی"},
	{"pl", "Polish", "Polski"},
	{"pt", "Portuguese", "Português"},
	{"ro", "Romanian", "Română"},
	{"ru", "Russian", "Русский"},
	{"sr", "Serbian", "Српски"},
	{"sk", "Slovak", "Slovenčina"},
	{"sl", "Slovenian", "Slovenščina"},
	{"es", "Spanish", "Español"},
	{"sw", "Swahili", "Kiswahili"},
	{"sv", "Swedish", "Svenska"},
	{"tl", "Tagalog", "Tagalog"},
	{"ta", "Tamil", "தமிழ்"},
	{"th", "Thai", "ไทย"},
	{"tr", "Turkish", "Türkçe"},
	{"uk", "Ukrainian", "Українська"},
	{"ur", "Urdu", "اردو"},
	{"vi", "Vietnamese", "Tiếng Việt"},
	{"cy", "Welsh", "Cymraeg"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(languages)+2)
	m[""] = Auto
	m[Auto.Code] = Auto
	for _, lang := range languages {
		m[lang.Code] = lang
	}
	return m
}()

// Label is the form label: "Spanish / Español (es)".
func (l Language) Label() string {
	if l.NativeName == "" || l.NativeName == l.Name {
		return fmt.Sprintf("%s (%s)", l.Name, l.Code)
	}
	return fmt.Sprintf("%s / %s (%s)", l.Name, l.NativeName, l.Code)
}

// FromCode looks code up; unknown codes fall back to Auto.
func FromCode(code string) Language {
	if lang, ok := byCode[code]; ok {
		return lang
	}
	return Auto
}

// List returns a copy of the table, Auto excluded.
func List() []Language {
	return append([]Language(nil), languages...)
}

func IsValidCode(code string) bool {
	_, ok := byCode[code]
	return ok
}

// ForProvider maps a config language to the engine's spelling: whisper-cli
// takes "auto", the OpenAI API takes no language at all.
func ForProvider(code, provider string) string {
	if code != "" && code != Auto.Code {
		return code
	}
	if provider == "openai" {
		return ""
	}
	return Auto.Code
}
