package language

// Fallback returns the built-in English text used when no bundle can be
// loaded.
func Fallback() Constants {
	return Constants{
		"AppTitle":       "ION Connections",
		"ModuleName":     "ION Connection Module",
		"Theme1Name":     "Leanswift Chartreuse",
		"Theme2Name":     "Royal Infor",
		"Theme3Name":     "Summer Smoothie",
		"Theme4Name":     "Pumpkin Spice",
		"Theme5Name":     "Vision Impaired",
		"Theme6Name":     "Lipstick Jungle",
		"Theme7Name":     "Silver Lining",
		"Theme8Name":     "Steel Clouds",
		"Wallpaper1Name": "Diamond",
		"Wallpaper2Name": "Grid",
		"Wallpaper3Name": "Linen",
		"Wallpaper4Name": "Tiles",
		"Wallpaper5Name": "Wood",
		"PK01":           "Connection",
		"PK02":           "Division",
		"PK03":           "Sequence",
		"PK04":           "Secondary key",
		"AL30":           "Description",
		"AL31":           "Short description",
		"AL32":           "Endpoint",
		"AL34":           "Document",
		"AL35":           "Connection id",
		"AL36":           "Remarks",
		"NotAuthorized":  "NOT Authorized, Please Contact Security",
	}
}
