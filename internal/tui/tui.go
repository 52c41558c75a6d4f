package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Joseda-hg/lazynote/internal/model"
	"github.com/Joseda-hg/lazynote/internal/note"
	"github.com/Joseda-hg/lazynote/internal/tag"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
)

const (
	viewHeader    = "header"
	viewFooter    = "footer"
	viewActive    = "active"
	viewArchived  = "archived"
	viewDeleted   = "deleted"
	viewTags      = "tags"
	viewDetail    = "detail"
	viewSearch    = "search"
	viewForm      = "form"
	viewHelp      = "help"
	viewTagCreate = "tagCreate"
)

// paneLimit caps how many notes one pane loads.
const paneLimit = model.MaxPageLimit

// pane is one lifecycle listing rendered as an outline.
type pane struct {
	state    model.State
	rows     []note.TreeRow
	selected int
	total    int
}

func (p *pane) selectedNote() *model.Note {
	if p == nil || p.selected < 0 || p.selected >= len(p.rows) {
		return nil
	}
	return &p.rows[p.selected].Note
}

type UI struct {
	notes *note.Service
	tags  *tag.Service
	owner string
	gui   *gocui.Gui

	panes map[string]*pane

	tagEntries   []tagCountEntry
	selectedTags int
	tagFilter    *tagCountEntry
	search       string

	collapsed map[string]bool
	focus     string

	form            *formState
	formEditor      *formEditor
	searchActive    bool
	helpActive      bool
	tagCreateActive bool
	status          string
}

type formState struct {
	noteID     string
	parentID   *string
	current    model.Note
	fields     []formField
	index      int
	suggestion string
}

type formEditor struct {
	ui *UI
}

func newUI(notes *note.Service, tags *tag.Service, owner string) *UI {
	ui := &UI{
		notes: notes,
		tags:  tags,
		owner: owner,
		focus: viewActive,
		panes: map[string]*pane{
			viewActive:   {state: model.StateActive},
			viewArchived: {state: model.StateArchived},
			viewDeleted:  {state: model.StateDeleted},
		},
		collapsed: make(map[string]bool),
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

// Run opens the terminal browser for owner's notes and blocks until the user
// quits.
func Run(notes *note.Service, tags *tag.Service, owner string) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(notes, tags, owner)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadNotes(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

type binding struct {
	view    string
	key     interface{}
	handler func(*gocui.Gui, *gocui.View) error
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quit},
		{"", 'r', u.reload},
		{"", 'g', u.clearFilters},
		{"", 'a', u.addNote},
		{"", 's', u.addChildNote},
		{"", 'e', u.editNote},
		{"", 'd', u.softDeleteNote},
		{"", 'x', u.toggleArchive},
		{"", 'u', u.restoreNote},
		{"", 'P', u.purgeNote},
		{"", 'c', u.toggleTask},
		{"", '/', u.startSearch},
		{"", '?', u.toggleHelp},
		{"", gocui.KeyTab, u.switchFocus},
		{"", '1', u.focusActive},
		{"", '2', u.focusArchived},
		{"", '3', u.focusDeleted},
		{"", '4', u.focusTags},
		{"", '5', u.focusDetail},
		{viewTags, gocui.KeySpace, u.toggleTagFilter},
		{viewTags, gocui.KeyEnter, u.toggleTagFilter},
		{viewTags, 'a', u.openTagCreate},
		{viewTags, 'd', u.deleteTag},
		{viewSearch, gocui.KeyEnter, u.submitSearch},
		{viewSearch, gocui.KeyEsc, u.cancelSearch},
		{viewForm, gocui.KeyEnter, u.submitFormNow},
		{viewForm, gocui.KeyCtrlJ, u.submitFormNow},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewHelp, gocui.KeyEsc, u.closeHelp},
		{viewHelp, 'q', u.closeHelp},
		{viewHelp, '?', u.closeHelp},
		{viewTagCreate, gocui.KeyEnter, u.submitTagCreate},
		{viewTagCreate, gocui.KeyEsc, u.cancelTagCreate},
	}

	for _, name := range []string{viewActive, viewArchived, viewDeleted, viewTags} {
		bindings = append(bindings,
			binding{name, gocui.KeyArrowDown, u.moveDown},
			binding{name, 'j', u.moveDown},
			binding{name, gocui.KeyArrowUp, u.moveUp},
			binding{name, 'k', u.moveUp},
		)
		if name != viewTags {
			bindings = append(bindings, binding{name, gocui.KeyEnter, u.toggleCollapse})
		}
	}

	for _, b := range bindings {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}

	for _, name := range []string{viewActive, viewArchived, viewDeleted, viewTags} {
		viewName := name
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewName, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, viewName, opts)
		}}); err != nil {
			return err
		}
	}

	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	l := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX0 := 0
	leftX1 := leftX0 + l.leftWidth - 1
	rightX0 := leftX1 + 1
	if rightX0 >= maxX {
		rightX0 = leftX1
	}
	rightX1 := maxX - 1

	activeY1 := bodyTop + l.activeHeight - 1
	archivedY1 := activeY1 + l.archivedHeight
	detailY1 := bodyTop + l.detailHeight - 1

	panes := []struct {
		name, title    string
		color          gocui.Attribute
		x0, y0, x1, y1 int
	}{
		{viewActive, "1 Notes", gocui.ColorGreen, leftX0, bodyTop, leftX1, activeY1},
		{viewArchived, "2 Archived", gocui.ColorYellow, leftX0, activeY1 + 1, leftX1, archivedY1},
		{viewDeleted, "3 Trash", gocui.ColorRed, rightX0, detailY1 + 1, rightX1, bodyBottom},
	}
	for _, p := range panes {
		view, err := gui.SetView(p.name, p.x0, p.y0, p.x1, p.y1, 0)
		if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		if goerrors.Is(err, gocui.ErrUnknownView) {
			view.TitleColor = p.color
		}
		view.Title = fmt.Sprintf("%s (%d)", p.title, u.panes[p.name].total)
		applyViewStyle(view, u.focus == p.name, true)
		u.renderNoteList(view, u.panes[p.name], u.focus == p.name)
	}

	tagsView, err := gui.SetView(viewTags, leftX0, archivedY1+1, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tagsView.Title = "4 Tags"
		tagsView.TitleColor = gocui.ColorCyan
	}
	applyViewStyle(tagsView, u.focus == viewTags, false)
	u.renderTags(tagsView)

	detailView, err := gui.SetView(viewDetail, rightX0, bodyTop, rightX1, detailY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "5 Detail"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, u.focus == viewDetail, false)
	u.renderDetail(detailView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSearch)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.tagCreateActive {
		if err := u.showTagCreate(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewTagCreate)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.searchActive || u.form != nil || u.tagCreateActive
	return nil
}

type layout struct {
	leftWidth      int
	activeHeight   int
	archivedHeight int
	tagsHeight     int
	detailHeight   int
	deletedHeight  int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := safeWidth / 2
	if leftWidth < 30 {
		leftWidth = 30
	}
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	activeHeight := max(int(float64(safeHeight)*0.5), 4)
	archivedHeight := max(int(float64(safeHeight)*0.25), 3)
	tagsHeight := safeHeight - activeHeight - archivedHeight
	if tagsHeight < 3 {
		tagsHeight = 3
		archivedHeight = max(safeHeight-activeHeight-tagsHeight, 3)
	}

	detailHeight := max(int(float64(safeHeight)*0.6), 4)
	deletedHeight := safeHeight - detailHeight
	if deletedHeight < 3 {
		deletedHeight = 3
		detailHeight = max(safeHeight-deletedHeight, 4)
	}

	return layout{
		leftWidth:      leftWidth,
		activeHeight:   activeHeight,
		archivedHeight: archivedHeight,
		tagsHeight:     tagsHeight,
		detailHeight:   detailHeight,
		deletedHeight:  deletedHeight,
	}
}

func (u *UI) noteFilter() model.Filter {
	filter := model.Filter{Search: u.search}
	if u.tagFilter != nil {
		tagID := u.tagFilter.ID
		filter.TagID = &tagID
	}
	return filter
}

func (u *UI) loadNotes() error {
	ctx := context.Background()
	filter := u.noteFilter()

	tagCounts := make(map[string]int)
	for _, name := range []string{viewActive, viewArchived, viewDeleted} {
		p := u.panes[name]
		page, err := u.notes.List(ctx, u.owner, p.state, filter, model.Pagination{Limit: paneLimit})
		if err != nil {
			return err
		}
		if p.state == model.StateActive {
			for _, n := range page.Data {
				for _, t := range n.Tags {
					tagCounts[t.ID]++
				}
			}
		}
		p.rows = note.Tree(page.Data, u.collapsed)
		p.total = page.Pagination.Total
		if p.selected >= len(p.rows) {
			p.selected = max(len(p.rows)-1, 0)
		}
	}

	allTags, err := u.tags.List(ctx, u.owner)
	if err != nil {
		return err
	}
	entries := make([]tagCountEntry, 0, len(allTags))
	for _, t := range allTags {
		entries = append(entries, tagCountEntry{ID: t.ID, Name: t.Name, Count: tagCounts[t.ID], Owned: t.Scope == model.TagScopeUser})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	u.tagEntries = entries
	if u.selectedTags >= len(u.tagEntries) {
		u.selectedTags = max(len(u.tagEntries)-1, 0)
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	query := strings.TrimSpace(u.search)
	if query == "" {
		query = "type / to search"
	}
	tagLabel := "none"
	if u.tagFilter != nil {
		tagLabel = u.tagFilter.Name
	}
	fmt.Fprintf(view, "Owner: %s | Search: %s | Tag: %s", u.owner, query, tagLabel)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "a add | s child | e edit | x archive | d delete | u restore | P purge | c task | enter collapse")
	fmt.Fprintln(view, "/ search | space tag | r reload | g clear | tab cycle | 1-5 panes | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderNoteList(view *gocui.View, p *pane, focused bool) {
	view.Clear()
	for i, row := range p.rows {
		prefix := " "
		if i == p.selected {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}

		marker := " "
		if row.HasChildren {
			if u.collapsed[row.Note.ID] {
				marker = "+"
			} else {
				marker = "-"
			}
		}

		fmt.Fprintf(view, "%s %s%s %s\n", prefix, strings.Repeat("  ", row.Depth), marker, formatNoteSummary(row.Note))
	}
	if focused {
		view.SetCursor(0, min(p.selected, len(p.rows)-1))
	}
}

func (u *UI) renderTags(view *gocui.View) {
	view.Clear()
	for index, entry := range u.tagEntries {
		prefix := " "
		if index == u.selectedTags {
			prefix = ">"
		}
		marker := " "
		if u.tagFilter != nil && u.tagFilter.ID == entry.ID {
			marker = "x"
		}
		scope := ""
		if !entry.Owned {
			scope = " (system)"
		}
		fmt.Fprintf(view, "%s [%s] %s%s (%d)\n", prefix, marker, entry.Name, scope, entry.Count)
	}
	if u.focus == viewTags {
		view.SetCursor(0, min(u.selectedTags, len(u.tagEntries)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedNote()
	if selected == nil {
		fmt.Fprint(view, "No note selected")
		return
	}
	fmt.Fprint(view, formatNoteDetail(*selected))
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	if viewName == viewTags {
		u.selectedTags = min(row, len(u.tagEntries)-1)
		return u.setFocus(gui, viewTags)
	}
	if p, ok := u.panes[viewName]; ok {
		p.selected = min(row, len(p.rows)-1)
		return u.setFocus(gui, viewName)
	}
	return nil
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	for _, name := range []string{viewActive, viewArchived, viewDeleted, viewTags, viewDetail} {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil && gui != nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollUp(1)
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil && gui != nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollDown(1)
	return nil
}

// focusedPane is the note pane under focus; the detail and tags panes fall
// back to the active notes.
func (u *UI) focusedPane() *pane {
	if p, ok := u.panes[u.focus]; ok {
		return p
	}
	return u.panes[viewActive]
}

func (u *UI) selectedNote() *model.Note {
	return u.focusedPane().selectedNote()
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewActive:
		u.focus = viewArchived
	case viewArchived:
		u.focus = viewDeleted
	case viewDeleted:
		u.focus = viewTags
	default:
		u.focus = viewActive
	}
	u.setCurrentView(gui, u.focus)
	return u.reload(gui, nil)
}

func (u *UI) focusActive(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewActive)
}

func (u *UI) focusArchived(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewArchived)
}

func (u *UI) focusDeleted(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDeleted)
}

func (u *UI) focusTags(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTags)
}

func (u *UI) focusDetail(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDetail)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	u.setCurrentView(gui, name)
	return u.reload(gui, nil)
}

func (u *UI) setCurrentView(gui *gocui.Gui, name string) {
	if gui == nil {
		return
	}
	_, _ = gui.SetCurrentView(name)
}

func (u *UI) deleteView(gui *gocui.Gui, name string) {
	if gui == nil {
		return
	}
	_ = gui.DeleteView(name)
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewTags {
		if u.selectedTags < len(u.tagEntries)-1 {
			u.selectedTags++
		}
		return nil
	}
	if p, ok := u.panes[u.focus]; ok && p.selected < len(p.rows)-1 {
		p.selected++
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewTags {
		if u.selectedTags > 0 {
			u.selectedTags--
		}
		return nil
	}
	if p, ok := u.panes[u.focus]; ok && p.selected > 0 {
		p.selected--
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadNotes()
}

func (u *UI) clearFilters(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.search = ""
	u.tagFilter = nil
	return u.reload(gui, nil)
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	u.deleteView(gui, viewHelp)
	u.setCurrentView(gui, u.focus)
	return nil
}

func (u *UI) openTagCreate(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	u.tagCreateActive = true
	return nil
}

func (u *UI) submitTagCreate(gui *gocui.Gui, view *gocui.View) error {
	if !u.tagCreateActive {
		return nil
	}
	name := strings.TrimSpace(view.Buffer())
	if name != "" {
		if _, err := u.createTag(name); err != nil {
			u.status = err.Error()
			return nil
		}
	}
	return u.closeTagCreate(gui)
}

func (u *UI) createTag(name string) (model.Tag, error) {
	return u.tags.Create(context.Background(), u.owner, tag.CreateInput{Name: name, Color: tagColor(name)})
}

func (u *UI) cancelTagCreate(gui *gocui.Gui, _ *gocui.View) error {
	if !u.tagCreateActive {
		return nil
	}
	return u.closeTagCreate(gui)
}

func (u *UI) closeTagCreate(gui *gocui.Gui) error {
	u.tagCreateActive = false
	u.deleteView(gui, viewTagCreate)
	u.setCurrentView(gui, u.focus)
	return u.loadNotes()
}

func (u *UI) showTagCreate(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/3)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewTagCreate, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "New Tag"
		view.Wrap = true
		view.Clear()
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewTagCreate)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 22
	x0 := (maxX - width) / 2
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewSearch, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.search)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	u.search = strings.TrimSpace(view.Buffer())
	u.searchActive = false
	u.status = ""
	u.deleteView(gui, viewSearch)
	u.setCurrentView(gui, u.focus)
	return u.loadNotes()
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	u.deleteView(gui, viewSearch)
	u.setCurrentView(gui, u.focus)
	return nil
}

func (u *UI) addNote(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus == viewTags {
		return nil
	}
	u.form = &formState{fields: buildFormFields(nil)}
	return nil
}

func (u *UI) addChildNote(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewActive {
		return nil
	}
	selected := u.selectedNote()
	if selected == nil {
		return nil
	}
	fields := buildFormFields(nil)
	fields[fieldTags].Value = joinTags(selected.Tags)
	parentID := selected.ID
	u.form = &formState{fields: fields, parentID: &parentID}
	return nil
}

func (u *UI) editNote(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedNote()
	if selected == nil {
		return nil
	}
	if selected.IsEncrypted {
		u.status = "encrypted notes cannot be edited here"
		return nil
	}
	u.form = &formState{noteID: selected.ID, current: *selected, fields: buildFormFields(selected)}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(12, max(8, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	switch {
	case u.form.noteID != "":
		view.Title = "Edit Note"
	case u.form.parentID != nil:
		view.Title = "New Child Note"
	default:
		view.Title = "New Note"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitFormNow(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}

	values, err := parseFormFields(u.form.fields)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	tagIDs, err := u.resolveTags(values.TagNames)
	if err != nil {
		u.status = err.Error()
		return nil
	}

	ctx := context.Background()
	if u.form.noteID == "" {
		input := values.createInput(tagIDs)
		input.ParentID = u.form.parentID
		_, err = u.notes.Create(ctx, u.owner, input)
	} else {
		_, err = u.notes.Update(ctx, u.form.noteID, u.owner, values.updateInput(u.form.current, tagIDs))
	}
	if err != nil {
		u.status = err.Error()
		return nil
	}

	u.form = nil
	u.status = ""
	u.deleteView(gui, viewForm)
	u.setCurrentView(gui, u.focus)
	return u.loadNotes()
}

// resolveTags maps tag names to ids, creating user tags for unknown names.
func (u *UI) resolveTags(names []string) ([]string, error) {
	byName := make(map[string]string, len(u.tagEntries))
	for _, entry := range u.tagEntries {
		key := strings.ToLower(entry.Name)
		if _, ok := byName[key]; !ok || entry.Owned {
			byName[key] = entry.ID
		}
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := byName[strings.ToLower(name)]; ok {
			ids = append(ids, id)
			continue
		}
		created, err := u.createTag(name)
		if err != nil {
			return nil, err
		}
		byName[strings.ToLower(name)] = created.ID
		ids = append(ids, created.ID)
	}
	return ids, nil
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.deleteView(gui, viewForm)
	u.setCurrentView(gui, u.focus)
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.refreshSuggestion()
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.refreshSuggestion()
	u.renderForm(view)
	return nil
}

// refreshSuggestion ranks tag names against the fragment being typed in the
// tags field.
func (u *UI) refreshSuggestion() {
	if u.form == nil {
		return
	}
	u.form.suggestion = ""
	if u.form.index != fieldTags {
		return
	}
	fragment := lastTagFragment(u.form.fields[fieldTags].Value)
	if fragment == "" {
		return
	}
	matches, err := u.tags.Suggest(context.Background(), u.owner, fragment, 1)
	if err != nil || len(matches) == 0 {
		return
	}
	if !strings.EqualFold(matches[0].Name, fragment) {
		u.form.suggestion = matches[0].Name
	}
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		value := field.Value
		if index == fieldTags && u.form.suggestion != "" {
			value = fmt.Sprintf("%s [pick: %s]", value, u.form.suggestion)
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	label := u.form.fields[u.form.index].Label + ": "
	cursorX := len([]rune(label)) + len([]rune(u.form.fields[u.form.index].Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	if ui.form.index == fieldTags && key == gocui.KeyArrowRight && ui.form.suggestion != "" {
		field.Value = completeTagField(field.Value, ui.form.suggestion)
		ui.form.suggestion = ""
		ui.renderForm(view)
		return true
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.refreshSuggestion()
	ui.renderForm(view)
	return true
}

func (u *UI) toggleArchive(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedNote()
	if selected == nil {
		return nil
	}
	ctx := context.Background()
	var err error
	switch note.StateOf(*selected) {
	case model.StateActive:
		_, err = u.notes.Archive(ctx, selected.ID, u.owner)
	case model.StateArchived:
		_, err = u.notes.Unarchive(ctx, selected.ID, u.owner)
	default:
		return nil
	}
	return u.afterAction(err)
}

func (u *UI) softDeleteNote(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewTags {
		return u.deleteTag(gui, view)
	}
	selected := u.selectedNote()
	if selected == nil || note.StateOf(*selected) == model.StateDeleted {
		return nil
	}
	_, err := u.notes.SoftDelete(context.Background(), selected.ID, u.owner)
	return u.afterAction(err)
}

func (u *UI) restoreNote(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewDeleted {
		return nil
	}
	selected := u.selectedNote()
	if selected == nil {
		return nil
	}
	_, err := u.notes.Restore(context.Background(), selected.ID, u.owner)
	return u.afterAction(err)
}

// purgeNote only works from the trash pane.
func (u *UI) purgeNote(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewDeleted {
		return nil
	}
	selected := u.selectedNote()
	if selected == nil {
		return nil
	}
	err := u.notes.HardDelete(context.Background(), selected.ID, u.owner)
	return u.afterAction(err)
}

func (u *UI) toggleTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedNote()
	if selected == nil || selected.Task == nil {
		return nil
	}
	var err error
	if selected.Task.CompletedAt == nil {
		_, err = u.notes.CompleteTask(context.Background(), selected.ID, u.owner)
	} else {
		_, err = u.notes.UncompleteTask(context.Background(), selected.ID, u.owner)
	}
	return u.afterAction(err)
}

// afterAction reports a failed action on the status line or reloads.
func (u *UI) afterAction(err error) error {
	if err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.loadNotes()
}

func (u *UI) deleteTag(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	if u.selectedTags < 0 || u.selectedTags >= len(u.tagEntries) {
		return nil
	}
	entry := u.tagEntries[u.selectedTags]
	if err := u.tags.Delete(context.Background(), entry.ID, u.owner); err != nil {
		u.status = err.Error()
		return nil
	}
	if u.tagFilter != nil && u.tagFilter.ID == entry.ID {
		u.tagFilter = nil
	}
	u.status = ""
	return u.loadNotes()
}

func (u *UI) toggleCollapse(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	p, ok := u.panes[u.focus]
	if !ok || p.selected < 0 || p.selected >= len(p.rows) {
		return nil
	}
	row := p.rows[p.selected]
	if !row.HasChildren {
		return nil
	}
	u.collapsed[row.Note.ID] = !u.collapsed[row.Note.ID]
	return u.loadNotes()
}

// toggleTagFilter narrows every pane to the selected tag, or clears the
// filter when that tag is already selected.
func (u *UI) toggleTagFilter(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	if u.selectedTags < 0 || u.selectedTags >= len(u.tagEntries) {
		return nil
	}
	entry := u.tagEntries[u.selectedTags]
	if u.tagFilter != nil && u.tagFilter.ID == entry.ID {
		u.tagFilter = nil
	} else {
		u.tagFilter = &entry
	}
	return u.reload(gui, nil)
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.form != nil || u.helpActive || u.tagCreateActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes (notes/archived/trash/tags)",
		"  1 Notes | 2 Archived | 3 Trash | 4 Tags | 5 Detail",
		"  j/k or arrows move selection",
		"  mouse click to focus/select, wheel scrolls",
		"",
		"Notes:",
		"  a add note | s add child note | e edit note",
		"  x archive/unarchive | d move to trash | c toggle task done",
		"  u restore (Trash) | P purge forever (Trash)",
		"  enter collapse/expand | enter save (form) | tab next field",
		"",
		"Search/Filter:",
		"  / search title and body | g clear filters",
		"",
		"Tags:",
		"  space/enter filter by tag | a add tag | d delete tag (Tags pane)",
		"  right arrow accepts the suggested tag (form)",
		"",
		"Other:",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
