// Package gen reads mapped structs from Go source files and builds
// their tables without compiling the package.
package gen
