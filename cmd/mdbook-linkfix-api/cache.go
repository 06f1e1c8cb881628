package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcdickinson/mdbook-linkfix/internal/cache"
)

var cacheDirFlag string

// cacheCmd groups the administrative subcommands supplementing spec.md's
// core, grounded on the teacher's clear-cache command.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "inspect or clear the item resolution cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "remove the persisted cache file",
	RunE:  runCacheClear,
}

var cacheStatCmd = &cobra.Command{
	Use:   "stat",
	Short: "report whether a cache file exists and how many items it holds",
	RunE:  runCacheStat,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", ".", "cache directory")
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if err := cache.Clear(cacheDirFlag); err != nil {
		slog.Error("failed to clear cache", "error", err)
		os.Exit(1)
	}
	fmt.Println("cache cleared")
	return nil
}

func runCacheStat(cmd *cobra.Command, args []string) error {
	exists, count, err := cache.Stat(cacheDirFlag)
	if err != nil {
		slog.Error("failed to read cache", "error", err)
		os.Exit(1)
	}
	if !exists {
		fmt.Println("no cache file present")
		return nil
	}
	fmt.Printf("cache holds %d resolved items\n", count)
	return nil
}
