package app

import "fmt"

// ModalName identifies a dialog of the screen.
type ModalName string

const (
	ModalAbout           ModalName = "about"
	ModalChangeTheme     ModalName = "changeTheme"
	ModalChangeWallpaper ModalName = "changeWallpaper"
	ModalChangeLanguage  ModalName = "changeLanguage"
	ModalAddRecord       ModalName = "addRecord"
	ModalRecordDetail    ModalName = "recordDetail"
	ModalContextMenu     ModalName = "contextMenu"
)

// Modal describes an open dialog.
type Modal struct {
	Name     ModalName `json:"name"`
	Template string    `json:"templateUrl"`
	Size     string    `json:"size"`
	Backdrop string    `json:"backdrop,omitempty"`
}

var modals = map[ModalName]Modal{
	ModalAbout:           {Template: "views/About.html", Size: "md"},
	ModalChangeTheme:     {Template: "views/ChangeThemeModal.html", Size: "md"},
	ModalChangeWallpaper: {Template: "views/ChangeWallpaperModal.html", Size: "md"},
	ModalChangeLanguage:  {Template: "views/ChangeLanguageModal.html", Size: "md"},
	ModalAddRecord:       {Template: "views/AddIONCONRecordModal.html", Size: "lg", Backdrop: "static"},
	ModalRecordDetail:    {Template: "views/IONCONRecordDetail.html", Size: "lg", Backdrop: "static"},
	ModalContextMenu:     {Template: "views/ContextMenu.html", Size: "xs"},
}

// LookupModal returns the descriptor of name.
func LookupModal(name ModalName) (Modal, error) {
	m, ok := modals[name]
	if !ok {
		return Modal{}, fmt.Errorf("%w: modal %q", ErrUnknownOption, name)
	}
	m.Name = name
	return m, nil
}
