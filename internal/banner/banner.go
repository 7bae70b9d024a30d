package banner

import (
	"oraclebench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
  ____                 _      ____                  _     
 / __ \_______ _______| | ___| __ ) ___ _ __   ___| |__  
| |  | |  __/ _' |/ __| |/ _ \  _ \/ _ \ '_ \ / __| '_ \ 
| |__| | | | (_| | (__| |  __/ |_) |  __/ | | | (__| | | |
 \____/|_|  \__,_|\___|_|\___|____/ \___|_| |_|\___|_| |_|`

	return "\n" + style.Render(ascii) + "\n"
}
