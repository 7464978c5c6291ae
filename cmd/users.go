package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"smart-locker-control/internal/access"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users and view access control information",
	Long:  `List users from the users file and display their roles and permissions.`,
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users with their roles and permissions",
	Run: func(cmd *cobra.Command, args []string) {
		listUsers()
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash [password]",
	Short: "Print a bcrypt hash for the users file",
	Long:  `Hash a password for the password_hash column. Reads the password from stdin when no argument is given.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				fatal("Failed to read password", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		hash, err := access.HashPassword(password)
		if err != nil {
			fatal("Failed to hash password", err)
		}
		fmt.Println(hash)
	},
}

func listUsers() {
	users, err := access.LoadDirectory(cfg.UsersFile)
	if err != nil {
		fatal("Failed to load users", err)
	}

	list := users.List()
	if len(list) == 0 {
		fmt.Println("No users found")
		return
	}

	// Print table header
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tPERMISSIONS")
	fmt.Fprintln(w, "--\t--------\t----\t-----------")

	for _, u := range list {
		perms := make([]string, 0, len(u.Permissions()))
		for _, p := range u.Permissions() {
			perms = append(perms, string(p))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, strings.Join(perms, ", "))
	}

	w.Flush()
	fmt.Printf("\nTotal users: %d\n", len(list))
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(listUsersCmd)
	usersCmd.AddCommand(hashPasswordCmd)
}
