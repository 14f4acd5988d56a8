// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mzbin",
		Short: "A columnar binary container for mzML mass-spectrometry data",
		Long:  "mzbin converts between mzML and a compact, block-compressed, random-access binary container",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("mzbin version 0.1.0")
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newShowCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
