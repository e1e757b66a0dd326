/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/allbin/nanocom"
	"github.com/allbin/nanocom/internal/tui/models"
	"github.com/allbin/nanocom/internal/tui/styles"
	"github.com/allbin/nanocom/serial"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// pickCmd represents the pick command
var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose a serial port interactively and connect to it",
	Long: `Show the available serial ports in an interactive table and start a
session on the one selected with Enter. All session flags of the root
command apply. Press q or esc to leave without connecting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.ListPorts()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("No serial ports found"))
			return nil
		}

		exitHint := ""
		if key, err := nanocom.DescriptionToKey(viper.GetString("exit-char")); err == nil {
			exitHint = fmt.Sprintf("Ctrl+%s exits the session", nanocom.KeyToDescription(key))
		}

		entries := make([]models.PortEntry, 0, len(ports))
		for _, info := range portInfos(ports) {
			entries = append(entries, models.PortEntry{
				Path:        info.Path,
				Type:        getPortType(info.Name),
				Description: info.Description,
			})
		}

		picker := models.NewPickerModel(entries, exitHint)
		if _, err := tea.NewProgram(picker, tea.WithOutput(os.Stderr)).Run(); err != nil {
			return fmt.Errorf("running picker: %w", err)
		}

		selected := picker.Selected()
		if selected == "" {
			return nil
		}
		log.WithField("port", selected).Debug("port selected")

		settings, err := loadSessionSettings(cmd, selected)
		if err != nil {
			return err
		}
		return runSession(settings, stdio())
	},
}

func init() {
	rootCmd.AddCommand(pickCmd)
}
