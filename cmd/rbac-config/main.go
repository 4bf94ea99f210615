package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	rbac "github.com/7Spade/Twilight-Hub-sub001"
	"github.com/7Spade/Twilight-Hub-sub001/stores"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "convert":
		handleConvert()
	case "validate":
		handleValidate()
	case "stats":
		handleStats()
	case "apply":
		handleApply()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("rbac-config - Role and assignment seed tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rbac-config convert <input> <output>  - Convert between formats")
	fmt.Println("  rbac-config validate <file>           - Validate a seed file")
	fmt.Println("  rbac-config stats <file>              - Show seed file statistics")
	fmt.Println("  rbac-config apply <file>              - Apply seeds to an in-memory engine")
	fmt.Println()
	fmt.Println("Supported formats: .yaml, .yml, .json")
}

func handleConvert() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: rbac-config convert <input> <output>")
		os.Exit(1)
	}

	inputFile := os.Args[2]
	outputFile := os.Args[3]

	cfg, err := loadConfig(inputFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := saveConfig(cfg, outputFile); err != nil {
		fmt.Printf("Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Converted %s -> %s\n", inputFile, outputFile)
}

func handleValidate() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: rbac-config validate <file>")
		os.Exit(1)
	}

	filename := os.Args[2]
	cfg, err := loadConfig(filename)
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Version: %d\n", cfg.Version)
	fmt.Printf("  Roles: %d\n", len(cfg.Roles))
	fmt.Printf("  Assignments: %d\n", len(cfg.Assignments))
}

func handleStats() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: rbac-config stats <file>")
		os.Exit(1)
	}

	filename := os.Args[2]
	cfg, err := loadConfig(filename)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	stat, _ := os.Stat(filename)

	fmt.Println("Seed File Statistics")
	fmt.Println("====================")
	if stat != nil {
		fmt.Printf("File size: %d bytes\n", stat.Size())
	}
	fmt.Printf("Version: %d\n", cfg.Version)
	fmt.Println()

	fmt.Println("Components:")
	fmt.Printf("  Roles:       %d\n", len(cfg.Roles))
	fmt.Printf("  Assignments: %d\n", len(cfg.Assignments))
	fmt.Println()

	if len(cfg.Roles) > 0 {
		totalPerms := 0
		for _, r := range cfg.Roles {
			totalPerms += len(r.Permissions)
		}
		fmt.Println("Role Details:")
		fmt.Printf("  Total permissions: %d\n", totalPerms)
		fmt.Printf("  Avg per role:      %.1f\n", float64(totalPerms)/float64(len(cfg.Roles)))
		fmt.Println()
	}

	if len(cfg.Assignments) > 0 {
		spaceCount := 0
		orgCount := 0
		for _, a := range cfg.Assignments {
			if a.SpaceID != "" {
				spaceCount++
			} else {
				orgCount++
			}
		}
		fmt.Println("Assignment Details:")
		fmt.Printf("  Space scoped: %d\n", spaceCount)
		fmt.Printf("  Org scoped:   %d\n", orgCount)
		fmt.Println()
	}

	fmt.Println("Engine Configuration:")
	fmt.Printf("  Role cache TTL:       %dms\n", cfg.Engine.RoleCacheTTLMs)
	fmt.Printf("  Role cache max cost:  %d\n", cfg.Engine.RoleCacheMaxCost)
	fmt.Printf("  Audit buffer size:    %d\n", cfg.Engine.AuditBufferSize)
	fmt.Printf("  Resolution timeout:   %dms\n", cfg.Engine.ResolutionTimeoutMs)
}

func handleApply() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: rbac-config apply <file>")
		os.Exit(1)
	}

	filename := os.Args[2]
	cfg, err := loadConfig(filename)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	engine, err := rbac.NewEngine(
		stores.NewMemoryRoleStore(),
		stores.NewMemoryAssignmentStore(),
		cfg.Engine.Options()...,
	)
	if err != nil {
		fmt.Printf("Error building engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.ApplyConfig(ctx, cfg); err != nil {
		fmt.Printf("Error applying config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration applied successfully\n")
	fmt.Printf("  Roles loaded: %d\n", len(cfg.Roles))
	fmt.Printf("  Assignments loaded: %d\n", len(cfg.Assignments))
}

func loadConfig(filename string) (*rbac.Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".yaml", ".yml":
		loader := rbac.NewConfigLoader()
		return loader.LoadYAML(data)
	case ".json":
		loader := rbac.NewConfigLoader()
		return loader.LoadJSON(data)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func saveConfig(cfg *rbac.Config, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = cfg.ToYAML()
	case ".json":
		data, err = cfg.ToJSON()
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}

	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
