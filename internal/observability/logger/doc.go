// Package logger expone un logger Zap de proceso con scoping por contexto.
//
// Init se llama una vez desde el comando serve; los middlewares inyectan un
// logger con request_id/method/path y el resto del código usa From(ctx).
//
//	log := logger.From(ctx)
//	log.Info("miembro añadido", logger.PersonID(id), logger.OrgID(orgID))
//
// Los emails se registran siempre enmascarados (ver Email).
package logger
