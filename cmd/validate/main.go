package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/agentflare-ai/go-xsd"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: validate <xml-file> <xsd-file> [imported-xsd...]")
		os.Exit(1)
	}

	xmlFile := os.Args[1]
	xsdFile := os.Args[2]

	xmlData, err := os.ReadFile(xmlFile)
	if err != nil {
		log.Fatalf("Failed to read XML file: %v", err)
	}

	decoder := xmldom.NewDecoderFromBytes(xmlData)
	doc, err := decoder.Decode()
	if err != nil {
		log.Fatalf("Failed to parse XML: %v", err)
	}

	repo := xsd.NewSchemaRepository(xsd.WithBaseDir(filepath.Dir(xsdFile)))
	if err := repo.Parse(xsd.ParseOptions{Files: os.Args[2:]}); err != nil {
		log.Fatalf("Failed to load XSD schema: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		log.Fatalf("Failed to resolve XSD schema: %v", err)
	}

	if errs := repo.Validate(false); len(errs) > 0 {
		fmt.Printf("Warning: schema has %d closure issue(s):\n", len(errs))
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		fmt.Println()
	}
	if warnings := repo.Warnings(); len(warnings) > 0 {
		fmt.Printf("Schema has %d allow_external warning(s):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	var entry *xsd.Schema
	for _, s := range repo.Schemas() {
		if filepath.Base(s.Location) == filepath.Base(xsdFile) {
			entry = s
			break
		}
	}
	if entry == nil {
		schemas := repo.Schemas()
		if len(schemas) == 0 {
			log.Fatalf("No schema was loaded from %s", xsdFile)
		}
		entry = schemas[0]
	}

	validator := xsd.NewRepositoryValidator(repo, entry)
	violations := validator.Validate(doc)

	converter := xsd.NewDiagnosticConverter(xmlFile, string(xmlData))
	diagnostics := converter.Convert(violations)

	if len(diagnostics) == 0 {
		fmt.Printf("%s is valid.\n", xmlFile)
		os.Exit(0)
	}

	formatter := &xsd.ErrorFormatter{
		Color:           true,
		ShowFullElement: false,
		ContextLines:    2,
	}

	fmt.Printf("Found %d validation issues in %s:\n\n", len(diagnostics), xmlFile)
	for _, diag := range diagnostics {
		fmt.Print(formatter.Format(diag, string(xmlData)))
		fmt.Println()
	}

	os.Exit(1)
}
