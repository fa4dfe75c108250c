// Package reflection analyzes constructor functions for the container.
package reflection
