package labscrub

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/redactyl/labscrub/internal/store"
	"github.com/spf13/cobra"
)

var (
	flagStoreKind   string
	flagStoreDir    string
	flagStoreSQLite string
)

func init() {
	storeCmd := &cobra.Command{Use: "store", Short: "Inspect stored sanitized outputs"}
	rootCmd.AddCommand(storeCmd)
	storeCmd.PersistentFlags().StringVar(&flagStoreKind, "store", "", "output store: file|sqlite")
	storeCmd.PersistentFlags().StringVarP(&flagStoreDir, "out", "o", "", "output directory for the file store (default .)")
	storeCmd.PersistentFlags().StringVar(&flagStoreSQLite, "sqlite-path", "", "SQLite database for --store sqlite")
	_ = storeCmd.RegisterFlagCompletionFunc("store", completeWords(store.KindFile, store.KindSQLite))
	_ = storeCmd.RegisterFlagCompletionFunc("out", completeDirs)

	storeCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(".")
			if err != nil {
				return err
			}
			st, err := s.openStore(flagStoreKind, flagStoreDir, flagStoreSQLite)
			if err != nil {
				return err
			}
			defer st.Close()
			entries, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No stored outputs")
				return nil
			}
			table := tablewriter.NewWriter(w)
			table.Header([]string{"NAME", "BYTES", "CREATED"})
			for _, e := range entries {
				if err := table.Append([]string{e.Name, strconv.FormatInt(e.Bytes, 10), e.CreatedAt.Local().Format("2006-01-02 15:04:05")}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	})

	storeCmd.AddCommand(&cobra.Command{
		Use:   "get NAME",
		Short: "Print a stored output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(".")
			if err != nil {
				return err
			}
			st, err := s.openStore(flagStoreKind, flagStoreDir, flagStoreSQLite)
			if err != nil {
				return err
			}
			defer st.Close()
			content, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), content)
			return err
		},
	})
}
