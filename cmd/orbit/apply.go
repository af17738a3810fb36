package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/orbit/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply component/business templates from a YAML manifest",
	Long: `Bulk-load ComponentTemplate and BusinessTemplate definitions from a
YAML manifest and POST them to the Manager's template endpoints.

Examples:
  orbit apply -f templates.yaml --manager http://127.0.0.1:8080`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	applyCmd.Flags().String("manager", "http://127.0.0.1:8080", "Manager API base URL")
	_ = applyCmd.MarkFlagRequired("file")
}

// orbitResource is a generic manifest document: one ComponentTemplate or
// BusinessTemplate per YAML document, separated by "---".
type orbitResource struct {
	APIVersion string                 `yaml:"apiVersion"`
	Kind       string                 `yaml:"kind"`
	Metadata   resourceMetadata       `yaml:"metadata"`
	Spec       map[string]interface{} `yaml:"spec"`
}

type resourceMetadata struct {
	Name string `yaml:"name"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	managerURL, _ := cmd.Flags().GetString("manager")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	decoder := yaml.NewDecoder(f)

	for {
		var resource orbitResource
		if err := decoder.Decode(&resource); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("parse manifest: %w", err)
		}

		switch resource.Kind {
		case "ComponentTemplate":
			if err := applyComponentTemplate(client, managerURL, &resource); err != nil {
				return err
			}
		case "BusinessTemplate":
			if err := applyBusinessTemplate(client, managerURL, &resource); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported resource kind: %q", resource.Kind)
		}
	}
	return nil
}

func applyComponentTemplate(client *http.Client, managerURL string, resource *orbitResource) error {
	specJSON, err := json.Marshal(resource.Spec)
	if err != nil {
		return fmt.Errorf("encode spec for %s: %w", resource.Metadata.Name, err)
	}

	var tmpl types.ComponentTemplate
	if err := json.Unmarshal(specJSON, &tmpl); err != nil {
		return fmt.Errorf("decode component template %s: %w", resource.Metadata.Name, err)
	}
	tmpl.TemplateName = resource.Metadata.Name

	if err := postJSON(client, managerURL+"/api/templates/components/", tmpl); err != nil {
		return fmt.Errorf("apply component template %s: %w", resource.Metadata.Name, err)
	}
	fmt.Printf("applied component template: %s\n", resource.Metadata.Name)
	return nil
}

func applyBusinessTemplate(client *http.Client, managerURL string, resource *orbitResource) error {
	specJSON, err := json.Marshal(resource.Spec)
	if err != nil {
		return fmt.Errorf("encode spec for %s: %w", resource.Metadata.Name, err)
	}

	var tmpl types.BusinessTemplate
	if err := json.Unmarshal(specJSON, &tmpl); err != nil {
		return fmt.Errorf("decode business template %s: %w", resource.Metadata.Name, err)
	}
	tmpl.TemplateName = resource.Metadata.Name

	if err := postJSON(client, managerURL+"/api/templates/businesses/", tmpl); err != nil {
		return fmt.Errorf("apply business template %s: %w", resource.Metadata.Name, err)
	}
	fmt.Printf("applied business template: %s\n", resource.Metadata.Name)
	return nil
}

func postJSON(client *http.Client, url string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
