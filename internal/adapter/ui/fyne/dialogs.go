package fyne

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/nuveplayer/nuve/res"
)

// showOpenFile asks for a local media file. Only extensions the library
// can read are offered.
func showOpenFile(window fyne.Window, logger *slog.Logger, extensions []string, onPicked func(path string)) {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			logger.Error("file dialog error", slog.Any("error", err))
			return
		}
		if reader == nil {
			return // User cancelled
		}
		defer reader.Close()
		onPicked(reader.URI().Path())
	}, window)
	if len(extensions) > 0 {
		d.SetFilter(storage.NewExtensionFileFilter(extensions))
	}
	d.Show()
}

// showOpenFolder asks for a folder to scan.
func showOpenFolder(window fyne.Window, logger *slog.Logger, onPicked func(path string)) {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			logger.Error("folder dialog error", slog.Any("error", err))
			return
		}
		if uri == nil {
			return // User cancelled
		}
		onPicked(uri.Path())
	}, window)
}

// showNewPlaylist asks for a playlist name.
func showNewPlaylist(window fyne.Window, onCreate func(name string)) {
	name := widget.NewEntry()
	name.SetPlaceHolder("Playlist name")
	dialog.ShowForm("Create playlist", "Create", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", name)},
		func(ok bool) {
			if ok {
				onCreate(name.Text)
			}
		}, window)
}

// showAbout displays the about dialog.
func showAbout(window fyne.Window, version string) {
	content := widget.NewRichTextFromMarkdown(res.AboutContent(version))
	content.Wrapping = fyne.TextWrapWord
	d := dialog.NewCustom("About "+AppName, "Close", content, window)
	d.Resize(fyne.NewSize(420, 320))
	d.Show()
}
