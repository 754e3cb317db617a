// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	DaemonNotRunningId Id = iota + 1
	DaemonAlreadyRunningId
	SocketInUseId
	ConfigInvalidId
	ConfigExistsId
	SwwwNotFoundId
	SwwwFailedId
	WallpaperDirEmptyId
	CategoriseConflictId
	PermissionDeniedId
)

// docsURL is the base of the troubleshooting pages.
const docsURL = "https://github.com/walrus-wm/walrus/blob/main/docs/"

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the message followed by a "See also" list of links.
func (i *Issue) Markdown() string {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return md.String()
}

// Render renders the issue with glamour. stylePath is a glamour style name
// such as "dark", "light" or "notty", or a path to a JSON style.
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	daemonNotRunningIssue = &Issue{
		id: DaemonNotRunningId,
		mdMsg: `
# The walrus daemon is not running!

Nothing is listening on the control socket, so the command could not be delivered.

## Things you can try:
- Start the daemon in the background:
~~~
$ walrus &
~~~

- Or start it from your compositor, for example in Hyprland:
~~~
exec-once = walrus
~~~

- If the daemon runs under another user or with a different
  XDG_RUNTIME_DIR, run the command from the same environment`,
		docLinks: []HttpLink{docsURL + "troubleshooting.md#daemon-not-running"},
	}

	daemonAlreadyRunningIssue = &Issue{
		id: DaemonAlreadyRunningId,
		mdMsg: `
# Another walrus daemon is already running!

Only one daemon may drive swww per session.

## Things you can try:
- Control the running daemon instead:
~~~
$ walrus status
$ walrus next
~~~

- Stop it before starting a new one:
~~~
$ walrus shutdown
~~~`,
		docLinks: []HttpLink{docsURL + "troubleshooting.md#already-running"},
	}

	socketInUseIssue = &Issue{
		id: SocketInUseId,
		mdMsg: `
# The control socket is in use!

Another process answers on the walrus control socket.

## Things you can try:
- Check which daemon owns it:
~~~
$ walrus status
~~~

- Stop that daemon with ` + "`walrus shutdown`" + ` and start again`,
		docLinks: []HttpLink{docsURL + "troubleshooting.md#socket-in-use"},
	}

	configInvalidIssue = &Issue{
		id: ConfigInvalidId,
		mdMsg: `
# The configuration file is invalid!

The daemon keeps running on the built-in defaults until the file is fixed.

## Things you can try:
- Show exactly what is wrong:
~~~
$ walrus config check
~~~

- Compare with the defaults:
~~~
$ walrus config --defaults
~~~

- Save the fixed file; the daemon reloads it automatically`,
		docLinks: []HttpLink{docsURL + "configuration.md"},
	}

	configExistsIssue = &Issue{
		id: ConfigExistsId,
		mdMsg: `
# A configuration file already exists!

` + "`walrus init`" + ` does not overwrite an existing file.

## Things you can try:
- Overwrite it with the defaults:
~~~
$ walrus init --force
~~~

- Or edit the file in place; ` + "`walrus config path`" + ` prints where it is`,
		docLinks: []HttpLink{docsURL + "configuration.md"},
	}

	swwwNotFoundIssue = &Issue{
		id: SwwwNotFoundId,
		mdMsg: `
# swww could not be started!

walrus sets wallpapers by running ` + "`swww img`" + `.

## Things you can try:
- Install swww from your distribution
- Point walrus at the binary in your config:
~~~toml
[general]
swww_path = "/usr/local/bin/swww"
~~~

- Make sure the swww daemon is running:
~~~
$ swww-daemon &
~~~`,
		docLinks: []HttpLink{docsURL + "troubleshooting.md#swww"},
		extLinks: []HttpLink{"https://github.com/LGFae/swww"},
	}

	swwwFailedIssue = &Issue{
		id: SwwwFailedId,
		mdMsg: `
# swww failed to set the wallpaper!

The wallpaper was not changed and the playlist did not move.

## Things you can try:
- Check that swww-daemon is running:
~~~
$ swww query
~~~

- Check that the image opens in an image viewer
- Read the daemon log for swww's own error output`,
		docLinks: []HttpLink{docsURL + "troubleshooting.md#swww"},
		extLinks: []HttpLink{"https://github.com/LGFae/swww"},
	}

	wallpaperDirEmptyIssue = &Issue{
		id: WallpaperDirEmptyId,
		mdMsg: `
# No wallpapers found!

The wallpaper directory is missing or holds no eligible images.

## Things you can try:
- Check ` + "`wallpaper_path`" + ` in your config
- Check that ` + "`patterns`" + ` matches your image names
- Turn on ` + "`recursive`" + ` if your images live in subdirectories`,
		docLinks: []HttpLink{docsURL + "configuration.md#wallpapers"},
	}

	categoriseConflictIssue = &Issue{
		id: CategoriseConflictId,
		mdMsg: `
# The wallpaper could not be categorised!

Something other than a link to the current wallpaper already exists at the destination.

## Things you can try:
- Move or delete the existing file in the category directory
- Pick a different category name`,
		docLinks: []HttpLink{docsURL + "usage.md#categories"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

walrus could not access one of its files.

## Things you can try:
- Check that you own your config, state and runtime directories
- Check that XDG_RUNTIME_DIR points at a directory you can write
- Do not run walrus with sudo`,
		docLinks: []HttpLink{docsURL + "troubleshooting.md#permissions"},
	}

	issues = map[Id]*Issue{
		daemonNotRunningIssue.Id():     daemonNotRunningIssue,
		daemonAlreadyRunningIssue.Id(): daemonAlreadyRunningIssue,
		socketInUseIssue.Id():          socketInUseIssue,
		configInvalidIssue.Id():        configInvalidIssue,
		configExistsIssue.Id():         configExistsIssue,
		swwwNotFoundIssue.Id():         swwwNotFoundIssue,
		swwwFailedIssue.Id():           swwwFailedIssue,
		wallpaperDirEmptyIssue.Id():    wallpaperDirEmptyIssue,
		categoriseConflictIssue.Id():   categoriseConflictIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id - b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
