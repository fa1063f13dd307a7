package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/medagenda/or-assistant/internal/directory"
	"github.com/medagenda/or-assistant/internal/nlu"
	"github.com/medagenda/or-assistant/internal/reservation"
	"github.com/medagenda/or-assistant/internal/schedule"
)

// maxListed caps every displayed list; the underlying lists keep their full
// length so index answers stay valid.
const maxListed = 10

const (
	replyPublicMenu = "Bienvenido.\n1) Directorio médico\n2) Servicios\n3) Agendar cita"

	replyDoctorMenuBody = "Puedo ayudarle con:\n" +
		"1) Reservar quirófano\n" +
		"2) Ver sus próximas reservas\n" +
		"3) Cancelar una reserva\n\n" +
		"¿Con cuál comenzamos?"

	replyAskDate = "Entendido.\n" +
		"¿Qué día desea reservar?\n\n" +
		"Puede escribirlo así:\n" +
		"- 29 de octubre\n" +
		"- 29/10"

	replyBadDate = "Formato de fecha no válido.\n\nUse DD/MM o el nombre del mes (ej: 29 de octubre)."

	replyPastDate = "Esa fecha ya pasó, doctor.\n\nPor favor indique una fecha a partir de hoy."

	replyNoSlots = "No hay horarios disponibles ese día.\n\n¿Desea probar con otra fecha?"

	replyUnknownProcedure = "No encontré ese procedimiento.\n\nEscriba el número o el nombre tal como aparece en la lista."

	replyUnknownRoom = "ID/Nombre de quirófano no válido.\n\nElija uno de la lista o escriba su nombre tal cual aparece."

	replyBadSlotOption = "Opción inválida.\n\nEscriba un número válido de la lista."

	replyPartialUnresolved = "No pude identificar la información. Por favor responda con el formato indicado."

	replySlotsGone = "Ese horario se acaba de ocupar y ya no hay más disponibles ese día.\n\n¿Puedo ayudarle con otra fecha?"

	replyCancelDone = "Operación cancelada.\n\n¿Puedo ayudarle con algo más hoy?"

	replyCancelFailed = "No pude cancelar en este momento. Intente de nuevo.\n\n¿Puedo ayudarle con algo más hoy?"

	replyFallback = "No le entendí. Escriba \"reset\" para volver al menú.\n\n¿Puedo ayudarle con algo más hoy?"

	replyTurnError = "Hubo un error procesando su solicitud. Por favor escriba \"reset\" para reiniciar."

	replyNoUpcoming = "No tiene reservas próximas.\n\n¿Desea agendar una? (responda 1)"

	replyNoCancellable = "No tiene reservas próximas para cancelar.\n\n¿Desea agendar una nueva? (responda 1)"
)

func greetingDoctor(name string) string {
	return fmt.Sprintf("Hola %s, qué gusto saludarle.\nSoy su asistente quirúrgico digital.\n\n%s",
		name, replyDoctorMenuBody)
}

func procedureListByID(procs []directory.Procedure) string {
	lines := make([]string, 0, len(procs))
	for _, p := range procs {
		lines = append(lines, fmt.Sprintf("%d) %s (%d min)", p.ID, p.Name, p.DurationMin))
	}
	return strings.Join(lines, "\n")
}

func procedureListByLetter(procs []directory.Procedure) string {
	lines := make([]string, 0, len(procs))
	for i, p := range procs {
		lines = append(lines, fmt.Sprintf("%c) %s (%d min)", 'A'+i, p.Name, p.DurationMin))
	}
	return strings.Join(lines, "\n")
}

func roomList(rooms []directory.Room) string {
	lines := make([]string, 0, len(rooms))
	for _, r := range rooms {
		lines = append(lines, fmt.Sprintf("%d) %s", r.ID, r.Name))
	}
	return strings.Join(lines, "\n")
}

func askProcedure(procs []directory.Procedure) string {
	return "Perfecto, doctor.\n¿Qué procedimiento desea realizar?\n\nAquí tiene la lista disponible:\n\n" +
		procedureListByID(procs) +
		"\n\nPuede escribir el número o el nombre, por ejemplo:\n\"Colecistectomía\"."
}

func askRoom(proc *directory.Procedure, rooms []directory.Room) string {
	return fmt.Sprintf("Excelente, el procedimiento será %s (%d min).\n¿En qué quirófano desea realizarlo?\n\n%s",
		proc.Name, proc.DurationMin, roomList(rooms))
}

func askMissingPartial(needProc, needRoom bool, procs []directory.Procedure, rooms []directory.Room) string {
	var b strings.Builder
	b.WriteString("Perfecto, doctor. ")
	switch {
	case needProc && needRoom:
		b.WriteString("Para proporcionarle los horarios necesito que me confirme:\n\n")
		b.WriteString("El quirófano:\n")
		b.WriteString(roomList(rooms))
		b.WriteString("\n\nY el procedimiento:\n")
		b.WriteString(procedureListByLetter(procs))
		b.WriteString("\n\nPuede responder ambos juntos, por ejemplo: \"2C\"")
	case needProc:
		b.WriteString("¿Qué procedimiento desea realizar?\n\n")
		b.WriteString(procedureListByLetter(procs))
	default:
		b.WriteString("¿En qué quirófano desea realizarlo?\n\n")
		b.WriteString(roomList(rooms))
	}
	return b.String()
}

func slotLines(slots []schedule.Slot) string {
	n := len(slots)
	if n > maxListed {
		n = maxListed
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("%d) %s", i+1, slots[i].Label))
	}
	return strings.Join(lines, "\n")
}

func offerSlots(room *directory.Room, date time.Time, loc *time.Location, slots []schedule.Slot) string {
	return fmt.Sprintf("Veamos los horarios disponibles para %s el %s...\n\n"+
		"Tengo estos espacios:\n\n%s\n\n"+
		"Por favor, elija el número del horario que más le convenga.",
		room.Name, nlu.FormatDateES(date, loc), slotLines(slots))
}

func showSlots(slots []schedule.Slot) string {
	return "Horarios disponibles:\n\n" + slotLines(slots) + "\n\nElija el número."
}

func slotTaken(slots []schedule.Slot) string {
	return "Ese horario se ocupó justo ahora.\n\nOpciones disponibles:\n\n" + slotLines(slots) + "\n\nElija el número."
}

func upcomingList(items []reservation.Hydrated, loc *time.Location) string {
	lines := make([]string, 0, len(items))
	for _, r := range items {
		lines = append(lines, fmt.Sprintf("- %s %s – %s | %s | %s",
			nlu.FormatDateShort(r.Start, loc),
			r.Start.In(loc).Format("15:04"),
			r.End.In(loc).Format("15:04"),
			r.RoomName, r.ProcedureName))
	}
	return fmt.Sprintf("Estas son sus próximas reservas, doctor:\n\n%s\n\n¿Desea cancelar alguna o agendar otra?",
		strings.Join(lines, "\n"))
}

func cancellableList(items []reservation.Hydrated, loc *time.Location) string {
	lines := make([]string, 0, len(items))
	for i, r := range items {
		lines = append(lines, fmt.Sprintf("%d) %s | %s | %s",
			i+1, nlu.FormatDateShort(r.Start, loc), r.RoomName, r.ProcedureName))
	}
	return fmt.Sprintf("Claro, estas son sus próximas reservas:\n\n%s\n\n"+
		"Indique el número de la reserva que desea cancelar o escriba \"salir\".",
		strings.Join(lines, "\n"))
}

func badCancelOption(n int) string {
	return fmt.Sprintf("Opción inválida.\n\nEscriba un número (1-%d) o \"salir\".", n)
}

func cancelConfirmed(id string) string {
	return fmt.Sprintf("Entendido, su reserva Folio %s fue cancelada correctamente.\n\n"+
		"¿Desea crear una nueva o ver sus próximas reservas?", id)
}

func bookingConfirmed(doctorName, procName, roomName string, date time.Time, loc *time.Location, label, folio string) string {
	return fmt.Sprintf("Perfecto.\nSu reserva ha sido creada con éxito:\n\n"+
		"Doctor: %s\n"+
		"Procedimiento: %s\n"+
		"Quirófano: %s\n"+
		"Fecha: %s\n"+
		"Hora: %s\n"+
		"Folio: %s\n\n"+
		"Ya que conoce los pasos, la próxima vez puede solicitar una reserva en una sola oración.\n\n"+
		"Por ejemplo:\n"+
		"\"Quiero agendar una colecistectomía para el 24 de octubre\".\n\n"+
		"Así podré procesarlo automáticamente para agilizar su solicitud.\n\n"+
		"¿Puedo ayudarle con algo más hoy?",
		doctorName, procName, roomName, nlu.FormatDateES(date, loc), label, folio)
}
