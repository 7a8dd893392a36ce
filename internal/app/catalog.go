package app

import (
	"strconv"

	"github.com/duke-git/lancet/v2/slice"
)

// Theme is a colour scheme. Code is the suffix of its style classes.
type Theme struct {
	ID        int    `json:"themeId"`
	Icon      string `json:"themeIcon"`
	NameKey   string `json:"themeName"`
	Code      string `json:"code"`
	Active    bool   `json:"active"`
	Available bool   `json:"available"`
}

// Texture is a background wallpaper.
type Texture struct {
	ID         int    `json:"textureId"`
	Icon       string `json:"textureIcon"`
	NameKey    string `json:"textureName"`
	Background string `json:"appBG"`
	Active     bool   `json:"active"`
	Available  bool   `json:"available"`
}

// Language is a selectable UI language. Official languages ship a translated
// bundle; the others fall back to the closest one.
type Language struct {
	Code      string `json:"languageCode"`
	Official  bool   `json:"officialTranslations"`
	Active    bool   `json:"active"`
	Available bool   `json:"available"`
}

// Module is a screen of the application.
type Module struct {
	ID           int    `json:"moduleId"`
	Heading      string `json:"heading"`
	ActiveIcon   string `json:"activeIcon"`
	InactiveIcon string `json:"inactiveIcon"`
	Active       bool   `json:"active"`
	Available    bool   `json:"available"`
}

// ModuleIONCON is the ION connection module.
const ModuleIONCON = 1

// Fallback selections.
const (
	DefaultThemeID   = 1
	DefaultTextureID = 1
	DefaultLanguage  = "en-US"
	DefaultModuleID  = ModuleIONCON
)

func themes() []Theme {
	t := func(id int, icon, code string) Theme {
		return Theme{ID: id, Icon: icon, NameKey: "Theme" + strconv.Itoa(id) + "Name", Code: code, Available: true}
	}
	return []Theme{
		t(1, "leanswiftchartreuse.png", "LC"),
		t(2, "royalinfor.png", "RI"),
		t(3, "summersmoothe.png", "SS"),
		t(4, "pumkinspice.png", "PS"),
		t(5, "visionimpared.png", "VI"),
		t(6, "lipstickjungle.png", "LJ"),
		t(7, "silverlining.png", "SL"),
		t(8, "steelclouds.png", "SC"),
	}
}

func textures() []Texture {
	t := func(id int, icon, bg string) Texture {
		return Texture{ID: id, Icon: icon, NameKey: "Wallpaper" + strconv.Itoa(id) + "Name", Background: bg, Available: true}
	}
	return []Texture{
		t(1, "diamond.png", "h5-texture-one"),
		t(2, "grid.png", "h5-texture-two"),
		t(3, "linen.png", "h5-texture-three"),
		t(4, "tiles.png", "h5-texture-four"),
		t(5, "wood.png", "h5-texture-five"),
	}
}

var officialLanguages = []string{"en-US", "fr-FR", "sv-SE"}

func languages() []Language {
	codes := []string{
		"ar-AR", "cs-CZ", "da-DK", "de-DE", "el-GR", "en-US", "es-ES", "fi-FI",
		"fr-FR", "he-IL", "hu-HU", "it-IT", "ja-JP", "nb-NO", "nl-NL", "pl-PL",
		"pt-PT", "ru-RU", "sv-SE", "tr-TR", "zh-CN", "ta-IN",
	}
	return slice.Map(codes, func(_ int, code string) Language {
		return Language{Code: code, Official: slice.Contain(officialLanguages, code), Available: true}
	})
}

func modules() []Module {
	return []Module{
		{ID: ModuleIONCON, Heading: "ION Connection Module", ActiveIcon: "SampleModule1.png", InactiveIcon: "SampleModule1-na.png", Available: true},
	}
}
