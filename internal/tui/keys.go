package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up             key.Binding
	Down           key.Binding
	PrevPage       key.Binding
	NextPage       key.Binding
	Toggle         key.Binding
	SelectPage     key.Binding
	ClearSelection key.Binding
	Search         key.Binding
	EditPrice      key.Binding
	EditInventory  key.Binding
	Ranges         key.Binding
	EditedOnly     key.Binding
	SortName       key.Binding
	SortPrice      key.Binding
	SortInventory  key.Binding
	PageSize       key.Binding
	MassEdit       key.Binding
	Revert         key.Binding
	Finalize       key.Binding
	Options        key.Binding
	Reload         key.Binding
	Help           key.Binding
	Quit           key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:             key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:           key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PrevPage:       key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h", "prev page")),
		NextPage:       key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→/l", "next page")),
		Toggle:         key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "select row")),
		SelectPage:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
		ClearSelection: key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "clear selection")),
		Search:         key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		EditPrice:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "edit price")),
		EditInventory:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "edit inventory")),
		Ranges:         key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "ranges")),
		EditedOnly:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edited only")),
		SortName:       key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "sort name")),
		SortPrice:      key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "sort price")),
		SortInventory:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "sort inventory")),
		PageSize:       key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "page size")),
		MassEdit:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mass edit")),
		Revert:         key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "revert all")),
		Finalize:       key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "finalize")),
		Options:        key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "options")),
		Reload:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:           key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.EditPrice, k.EditInventory, k.Toggle, k.MassEdit, k.Finalize, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage, k.PageSize},
		{k.Search, k.Ranges, k.EditedOnly, k.SortName, k.SortPrice, k.SortInventory},
		{k.EditPrice, k.EditInventory, k.Toggle, k.SelectPage, k.ClearSelection, k.MassEdit},
		{k.Revert, k.Finalize, k.Options, k.Reload, k.Help, k.Quit},
	}
}
