// Package repository define los tipos de dominio (Person, Organization,
// Statement) y los contratos de repositorio que implementan los adapters de
// internal/store.
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - Las referencias opcionales a organizaciones se representan con "" (sin organización).
//   - Los errores de almacenamiento están en errors.go.
package repository
