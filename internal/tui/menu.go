package tui

import (
	"fmt"
	"strings"

	"qdeutsch/internal/oracle"
)

// textbookInputs is the input count of the generated menu oracles.
const textbookInputs = 3

// menuCategory groups related examples under a tab.
type menuCategory struct {
	name  string
	items []oracle.Example
}

func exampleMenu() []menuCategory {
	menu := []menuCategory{
		{name: "Deutsch", items: oracle.DeutschExamples()},
		{name: "Deutsch-Jozsa", items: oracle.JozsaExamples()},
	}
	if textbook, err := oracle.TextbookExamples(textbookInputs); err == nil {
		menu = append(menu, menuCategory{name: "Textbook", items: textbook})
	}
	return menu
}

// renderMenu renders the example picker.
func (m Model) renderMenu(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Examples"))
	sb.WriteString("\n")

	// Category tabs
	for i, cat := range m.menu {
		name := " " + cat.name + " "
		if i == m.menuCat {
			sb.WriteString(activeStyle.Render(name))
		} else {
			sb.WriteString(dimStyle.Render(name))
		}
		if i < len(m.menu)-1 {
			sb.WriteString(dimStyle.Render("│"))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", max(width-4, 10))))
	sb.WriteString("\n")

	for i, item := range m.menu[m.menuCat].items {
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ "))
			sb.WriteString(menuSelectedStyle.Render(fmt.Sprintf("%-18s", item.Name)))
		} else {
			sb.WriteString("   ")
			sb.WriteString(menuNormalStyle.Render(fmt.Sprintf("%-18s", item.Name)))
		}
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("   " + item.Description))
		sb.WriteString("\n")
	}

	return menuPanelStyle.Width(width).Height(height).Render(sb.String())
}
