package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feuc/declaraciones/internal/bootstrap"
	"github.com/feuc/declaraciones/internal/domain/repository"
)

func (c *cli) orgCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "org", Short: "Organizaciones"}

	var in repository.NewOrganization
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea una organización",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			o, err := bootstrap.CreateOrganization(cmd.Context(), conn, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", o.ID, o.Acronym, o.Name)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "Nombre de la organización")
	create.Flags().StringVar(&in.Acronym, "acronym", "", "Sigla")
	create.Flags().StringVar(&in.Type, "type", "Centro de Estudiantes", "Tipo")

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista las organizaciones",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			orgs, err := conn.Organizations().List(cmd.Context())
			if err != nil {
				return err
			}
			for _, o := range orgs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", o.ID, o.Acronym, o.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func (c *cli) personCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "person", Short: "Roles de personas ya registradas"}

	var email string
	var rep repository.Representative
	promote := &cobra.Command{
		Use:   "promote",
		Short: "Marca a una persona como representante",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			p, err := bootstrap.PromoteRepresentative(cmd.Context(), conn, email, rep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\trepresentante\n", p.ID, p.Username)
			return nil
		},
	}
	promote.Flags().StringVar(&email, "email", "", "Email de la persona")
	promote.Flags().StringVar(&rep.Type, "type", "", "Cargo")
	promote.Flags().StringVar(&rep.Territory, "territory", "", "Territorio")
	promote.Flags().StringVar(&rep.Career, "career", "", "Carrera")
	promote.Flags().IntVar(&rep.Year, "year", 0, "Año (opcional)")

	var adminEmail, orgID string
	makeAdmin := &cobra.Command{
		Use:   "make-admin",
		Short: "Deja a una persona como admin de una organización",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			p, err := bootstrap.MakeAdmin(cmd.Context(), conn, adminEmail, orgID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tadmin de %s\n", p.ID, p.Username, p.AdminOf)
			return nil
		},
	}
	makeAdmin.Flags().StringVar(&adminEmail, "email", "", "Email de la persona")
	makeAdmin.Flags().StringVar(&orgID, "org", "", "ID de la organización")

	cmd.AddCommand(promote, makeAdmin)
	return cmd
}
