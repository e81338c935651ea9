package preview

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderSummary 将逻辑摘要渲染为终端表格
func RenderSummary(sections []Section) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("策略逻辑摘要")
	t.AppendHeader(table.Row{"分支", "容器", "条件组", "条件", "必须"})

	if len(sections) == 0 {
		t.AppendRow(table.Row{"-", "-", "-", "未配置任何条件", ""})
		return t.Render()
	}

	for i, s := range sections {
		branch := fmt.Sprintf("%s (≥%d)", s.Branch, s.MinPass)
		for _, c := range s.Containers {
			container := nameOr(c.Name, c.ID) + fmt.Sprintf(" (≥%d)", c.MinPass)
			if c.Required {
				container += " *"
			}
			for _, g := range c.Groups {
				group := nameOr(g.Name, g.ID) + fmt.Sprintf(" (≥%d)", g.MinPass)
				if g.Required {
					group += " *"
				}
				for _, l := range g.Lines {
					t.AppendRow(table.Row{branch, container, group, l.Text, mark(l.Required)})
				}
			}
		}
		for _, a := range s.Actions {
			t.AppendRow(table.Row{branch, "onPass", "", a.Text, mark(a.Required)})
		}
		if i < len(sections)-1 {
			t.AppendSeparator()
		}
	}
	return t.Render()
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func mark(required bool) string {
	if required {
		return "✓"
	}
	return ""
}
