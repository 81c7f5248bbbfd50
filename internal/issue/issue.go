// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	NoBackendAvailableId Id = iota + 1
	InputDirNotFoundId
	OutputDirNotWritableId
	NoArchivesFoundId
	ConfigLoadFailedId
	InvalidFormatId
	ItemsFailedId
	InvalidBackendConfigId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Renderer interface {
		Render(in string, stylePath string) (string, error)
	}

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink  // documentation for the tools involved
		extLinks []HttpLink  // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the issue's Markdown, followed by its links, with glamour.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	noBackendAvailableIssue = &Issue{
		id: NoBackendAvailableId,
		mdMsg: `
# No extraction backend available!

Every extraction backend failed its availability check, so no archive can be unpacked.

## Things you can try:
- Install one of the supported tools and make sure it is in your PATH:
~~~
$ sudo apt install unrar p7zip-full unzip   # Debian / Ubuntu
$ brew install rar sevenzip                  # macOS
$ winget install 7zip.7zip                   # Windows
~~~

- Check which backends were found and why the others were excluded:
~~~
$ xblaunpack backends
~~~

- Review ` + "`extract.order`" + ` and ` + "`extract.disable`" + ` in your config; the built-in
  ` + "`archives`" + ` backend may have been disabled.`,
		docLinks: []HttpLink{"https://www.7-zip.org/", "https://www.rarlab.com/rar_add.htm"},
	}

	inputDirNotFoundIssue = &Issue{
		id: InputDirNotFoundId,
		mdMsg: `
# Input directory not found!

The directory that should contain your archives does not exist or is not a directory.

## Things you can try:
- Check the path for typos and pass it explicitly:
~~~
$ xblaunpack unpack /path/to/archives /path/to/output
~~~

- Run without arguments to pick the directories interactively:
~~~
$ xblaunpack unpack
~~~`,
	}

	outputDirNotWritableIssue = &Issue{
		id: OutputDirNotWritableId,
		mdMsg: `
# Cannot write to the output directory!

The output directory could not be created or is not writable.

## Things you can try:
- Check the directory permissions
- Make sure the target drive is mounted and has free space
- Choose another output directory`,
	}

	noArchivesFoundIssue = &Issue{
		id: NoArchivesFoundId,
		mdMsg: `
# No archives found!

The input directory contains no files ending in ` + "`.rar`" + `, ` + "`.zip`" + ` or ` + "`.7z`" + `.

## Things you can try:
- Check that you selected the right directory
- Archives in subdirectories are not searched; move them to the top level`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your configuration file could not be read or does not match the schema.

## Things you can try:
- Show where configuration is read from:
~~~
$ xblaunpack config path
~~~

- Write a fresh default configuration:
~~~
$ xblaunpack config init --force
~~~

- Check the reported line and column; the file is CUE, so strings need double quotes.`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	invalidFormatIssue = &Issue{
		id: InvalidFormatId,
		mdMsg: `
# Unknown naming format!

## Supported formats:
| Format | Example |
|---|---|
| keep-spaces | Game Title |
| underscore | Game_Title |
| dash | Game-Title |
| remove-spaces | GameTitle |

## Things you can try:
~~~
$ xblaunpack unpack --format underscore
~~~`,
	}

	itemsFailedIssue = &Issue{
		id: ItemsFailedId,
		mdMsg: `
# Some archives could not be unpacked!

The failed items are listed above with the stage at which they stopped.

## Things you can try:
- **extracting**: the archive may be corrupt or password protected; try opening it manually
- **locating**: the archive was empty; the scratch directory was kept for inspection
- **sanitizing**: rename the archive so its name contains letters or digits
- Re-run the same command: completed items are skipped automatically`,
	}

	invalidBackendConfigIssue = &Issue{
		id: InvalidBackendConfigId,
		mdMsg: `
# Invalid backend configuration!

A backend named in ` + "`extract.order`" + ` or ` + "`extract.disable`" + ` does not exist, or a custom
backend is malformed.

## Things you can try:
- List the known backend names:
~~~
$ xblaunpack backends
~~~

- Custom commands must reference both ` + "`$ARCHIVE`" + ` and ` + "`$DEST`" + `:
~~~cue
extract: custom: [{
	name:    "bsdtar"
	command: "bsdtar -xf \"$ARCHIVE\" -C \"$DEST\""
	probe:   "bsdtar --version"
}]
~~~`,
	}

	issues = map[Id]*Issue{
		noBackendAvailableIssue.Id():   noBackendAvailableIssue,
		inputDirNotFoundIssue.Id():     inputDirNotFoundIssue,
		outputDirNotWritableIssue.Id(): outputDirNotWritableIssue,
		noArchivesFoundIssue.Id():      noArchivesFoundIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		invalidFormatIssue.Id():        invalidFormatIssue,
		itemsFailedIssue.Id():          itemsFailedIssue,
		invalidBackendConfigIssue.Id(): invalidBackendConfigIssue,
	}
)

// all returns every issue ordered by Id.
func all() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
